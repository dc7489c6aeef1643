package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type orgForm struct {
	Slug  string `validate:"required,slug,max=63"`
	Name  string `validate:"required,min=2,max=255"`
	Email string `validate:"email"`
}

type domainForm struct {
	Domain string `validate:"required,hostname"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		input interface{}
		valid bool
	}{
		{"valid org", &orgForm{Slug: "acme-events", Name: "Acme Events"}, true},
		{"missing slug", &orgForm{Name: "Acme Events"}, false},
		{"uppercase slug", &orgForm{Slug: "Acme", Name: "Acme Events"}, false},
		{"slug with leading hyphen", &orgForm{Slug: "-acme", Name: "Acme Events"}, false},
		{"slug with space", &orgForm{Slug: "acme events", Name: "Acme Events"}, false},
		{"name too short", &orgForm{Slug: "acme", Name: "A"}, false},
		{"bad email", &orgForm{Slug: "acme", Name: "Acme Events", Email: "nope"}, false},
		{"good email", &orgForm{Slug: "acme", Name: "Acme Events", Email: "ops@acme.dev"}, true},
		{"valid hostname", &domainForm{Domain: "conf.example.com"}, true},
		{"bare label", &domainForm{Domain: "localhost"}, false},
		{"hostname with scheme", &domainForm{Domain: "https://conf.example.com"}, false},
		{"hostname label leading hyphen", &domainForm{Domain: "-conf.example.com"}, false},
		{"missing domain", &domainForm{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
