package source

import (
	"errors"
	"fmt"
	"sort"
)

// Type identifies an external content source.
type Type string

const (
	Spotify Type = "spotify"
	YouTube Type = "youtube"
	Pocket  Type = "pocket"
)

var ErrUnknownSource = errors.New("unknown source type")

var known = map[Type]bool{
	Spotify: true,
	YouTube: true,
	Pocket:  true,
}

// Parse returns the Type for its canonical tag.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !known[t] {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	return t, nil
}

func (t Type) Valid() bool {
	return known[t]
}

func (t Type) String() string {
	return string(t)
}

// All returns every known source in a stable order.
func All() []Type {
	all := make([]Type, 0, len(known))
	for t := range known {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}
