package solution

import (
	"fmt"
	"strings"
)

// EntityKind names the kind of record a solution refers to by id.
type EntityKind string

const (
	KindIndustry   EntityKind = "industry"
	KindTechnology EntityKind = "technology"
	KindUser       EntityKind = "user"
)

// Kinds lists every EntityKind.
var Kinds = []EntityKind{KindIndustry, KindTechnology, KindUser}

// ParseEntityKind parses s as an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindIndustry, KindTechnology, KindUser:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Entity is an industry, technology or user record. Only the fields used
// to build a display name are decoded.
type Entity struct {
	ID   string     `json:"_id" bson:"_id" yaml:"_id"`
	Kind EntityKind `json:"kind" bson:"-" yaml:"kind"`
	// Source is the collection a user was found in ("clients" or "users").
	Source string `json:"source,omitempty" bson:"-" yaml:"source,omitempty"`

	Name        string `json:"name,omitempty" bson:"name,omitempty" yaml:"name,omitempty"`
	CompanyName string `json:"company_name,omitempty" bson:"company_name,omitempty" yaml:"company_name,omitempty"`
	FirstName   string `json:"first_name,omitempty" bson:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty" bson:"last_name,omitempty" yaml:"last_name,omitempty"`
	Username    string `json:"username,omitempty" bson:"username,omitempty" yaml:"username,omitempty"`
	Email       string `json:"email,omitempty" bson:"email,omitempty" yaml:"email,omitempty"`
}

// DisplayName returns the name to show for e.
//
// Users prefer the company name, then "first last", then the first name
// alone, then username and email. Industries and technologies use Name.
// Anything without a usable name shows its id.
func (e Entity) DisplayName() string {
	if e.Kind == KindUser {
		switch {
		case e.CompanyName != "":
			return e.CompanyName
		case e.FirstName != "" && e.LastName != "":
			return e.FirstName + " " + e.LastName
		case e.FirstName != "":
			return e.FirstName
		case e.Username != "":
			return e.Username
		case e.Email != "":
			return e.Email
		}
		return e.ID
	}
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}
