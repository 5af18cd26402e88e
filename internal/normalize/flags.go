package normalize

import (
	"regexp"
	"strings"
)

var (
	petRegex     = regexp.MustCompile(`ペット可|ペット相談`)
	southRegex   = regexp.MustCompile(`南向き`)
	cornerRegex  = regexp.MustCompile(`角部屋`)
	balconyRegex = regexp.MustCompile(`バルコニー`)
	towerRegex   = regexp.MustCompile(`タワー?マンション|シティタワー`)
)

// Flags are amenity keywords found anywhere in a listing's text.
type Flags struct {
	PetOK        bool `json:"pet_ok" bson:"pet_ok"`
	SouthFacing  bool `json:"south_facing" bson:"south_facing"`
	Corner       bool `json:"corner" bson:"corner"`
	Balcony      bool `json:"balcony" bson:"balcony"`
	TowerMansion bool `json:"tower_mansion" bson:"tower_mansion"`
}

// DetectFlags joins the given texts and tests each amenity keyword on its own.
func DetectFlags(texts ...string) Flags {
	parts := make([]string, 0, len(texts))
	for _, text := range texts {
		if text != "" {
			parts = append(parts, text)
		}
	}
	joined := Z2H(strings.Join(parts, " "))

	return Flags{
		PetOK:        petRegex.MatchString(joined),
		SouthFacing:  southRegex.MatchString(joined),
		Corner:       cornerRegex.MatchString(joined),
		Balcony:      balconyRegex.MatchString(joined),
		TowerMansion: towerRegex.MatchString(joined),
	}
}
