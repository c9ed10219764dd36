package quota

// Kind identifies the metered request kind.
type Kind string

const (
	KindText  Kind = "text"
	KindPhoto Kind = "photo"
)

// Valid reports whether the kind is one of the metered request kinds.
func (k Kind) Valid() bool {
	return k == KindText || k == KindPhoto
}

func (k Kind) column() string {
	if k == KindPhoto {
		return "photo_count"
	}
	return "text_count"
}
