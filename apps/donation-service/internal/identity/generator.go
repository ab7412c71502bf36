package identity

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

var (
	emailNames   = []string{"joao", "maria", "pedro", "ana", "carlos", "julia", "lucas", "sofia", "gabriel", "isabella"}
	emailDomains = []string{"gmail.com", "hotmail.com", "outlook.com", "yahoo.com", "icloud.com"}
)

// AllowedEmailDomains returns the domains GenerateEmail draws from
func AllowedEmailDomains() []string {
	out := make([]string, len(emailDomains))
	copy(out, emailDomains)
	return out
}

// Generator produces synthetic donor identity fields
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates a generator over src. A nil src seeds from the clock.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}
	return &Generator{rnd: rand.New(src)}
}

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.IntN(n)
}

// GenerateTaxID returns an 11-digit CPF with valid check digits
func (g *Generator) GenerateTaxID() string {
	for {
		digits := make([]int, 9, 11)
		for i := range digits {
			digits[i] = g.intN(10)
		}
		if allSame(digits) {
			continue
		}
		digits = append(digits, checkDigit(digits))
		digits = append(digits, checkDigit(digits))
		return joinDigits(digits)
	}
}

// GenerateEmail returns <name><n>@<domain>
func (g *Generator) GenerateEmail() string {
	name := emailNames[g.intN(len(emailNames))]
	domain := emailDomains[g.intN(len(emailDomains))]
	return fmt.Sprintf("%s%d@%s", name, g.intN(9999), domain)
}

// GeneratePhoneNumber returns 55 + DDD + 9 + eight digits
func (g *Generator) GeneratePhoneNumber() string {
	ddd := g.intN(89) + 11
	prefix := g.intN(9000) + 1000
	suffix := g.intN(9000) + 1000
	return fmt.Sprintf("55%d9%d%d", ddd, prefix, suffix)
}

// GenerateName returns a placeholder donor name
func (g *Generator) GenerateName() string {
	return fmt.Sprintf("Doador %d", g.intN(90000)+10000)
}

// ValidTaxID checks length and both CPF check digits
func ValidTaxID(s string) bool {
	if len(s) != 11 {
		return false
	}
	digits := make([]int, 11)
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}
	if allSame(digits) {
		return false
	}
	return checkDigit(digits[:9]) == digits[9] && checkDigit(digits[:10]) == digits[10]
}

// checkDigit weights the digits from len+1 down to 2
func checkDigit(digits []int) int {
	weight := len(digits) + 1
	sum := 0
	for i, d := range digits {
		sum += d * (weight - i)
	}
	dv := 11 - sum%11
	if dv >= 10 {
		return 0
	}
	return dv
}

func allSame(digits []int) bool {
	for _, d := range digits[1:] {
		if d != digits[0] {
			return false
		}
	}
	return true
}

func joinDigits(digits []int) string {
	var b strings.Builder
	b.Grow(len(digits))
	for _, d := range digits {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}
