package identity

import (
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestGenerator() *Generator {
	return NewGenerator(rand.NewPCG(42, 7))
}

func TestGenerateTaxID_CheckDigits(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 1000; i++ {
		cpf := g.GenerateTaxID()
		assert.Len(t, cpf, 11)
		assert.True(t, ValidTaxID(cpf), "generated %s has invalid check digits", cpf)
	}
}

func TestValidTaxID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"52998224725", true},
		{"11144477735", true},
		{"52998224726", false},
		{"11111111111", false},
		{"5299822472", false},
		{"5299822472a", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTaxID(tt.in))
		})
	}
}

func TestGenerateEmail(t *testing.T) {
	g := newTestGenerator()
	domains := AllowedEmailDomains()
	for i := 0; i < 200; i++ {
		email := g.GenerateEmail()
		local, domain, ok := strings.Cut(email, "@")
		assert.True(t, ok)
		assert.NotEmpty(t, local)
		assert.True(t, slices.Contains(domains, domain), "unexpected domain %s", domain)
	}
}

func TestGeneratePhoneNumber(t *testing.T) {
	re := regexp.MustCompile(`^55[1-9][0-9]9[0-9]{8}$`)
	g := newTestGenerator()
	for i := 0; i < 200; i++ {
		phone := g.GeneratePhoneNumber()
		assert.Regexp(t, re, phone)
		assert.Len(t, phone, 13)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(rand.NewPCG(1, 2))
	b := NewGenerator(rand.NewPCG(1, 2))
	assert.Equal(t, a.GenerateTaxID(), b.GenerateTaxID())
	assert.Equal(t, a.GenerateEmail(), b.GenerateEmail())
	assert.Equal(t, a.GeneratePhoneNumber(), b.GeneratePhoneNumber())
	assert.Equal(t, a.GenerateName(), b.GenerateName())
}
