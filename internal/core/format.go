package core

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName returns the pt-BR month name in lower case ("março").
func MonthName(d Date) string {
	return monthNames[d.Month()-1]
}

// MonthLabel returns "março 2024".
func MonthLabel(d Date) string {
	return MonthName(d) + " " + strconv.Itoa(d.Year())
}

// FormatDateBR formats as dd/MM/yyyy.
func FormatDateBR(d Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("02/01/2006")
}

// FormatDateLong formats as "10 de fevereiro de 2024".
func FormatDateLong(d Date) string {
	return strconv.Itoa(d.Day()) + " de " + MonthName(d) + " de " + strconv.Itoa(d.Year())
}

// FormatBRL formats centavos as Brazilian currency, e.g. "R$ 1.234,56".
func FormatBRL(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	reais := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	for i, r := range reais {
		if i > 0 && (len(reais)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	rem := cents % 100
	s := "R$ " + grouped.String() + "," + strconv.FormatInt(rem/10, 10) + strconv.FormatInt(rem%10, 10)
	if neg {
		return "-" + s
	}
	return s
}

// FormatParts renders parts for tables: "Capo, Teto" or "-" when empty.
func FormatParts(parts []RepairedPart) string {
	if len(parts) == 0 {
		return "-"
	}
	labels := make([]string, len(parts))
	for i, p := range parts {
		labels[i] = p.Label()
	}
	return strings.Join(labels, ", ")
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Fold lower-cases s and strips diacritics so "JOÃO" matches "joao".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

const authCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateAuthCode returns an authentication code like "AC4F9K2Z".
func GenerateAuthCode() string {
	var b strings.Builder
	b.WriteString("AC")
	max := big.NewInt(int64(len(authCodeAlphabet)))
	for range 6 {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(authCodeAlphabet[n.Int64()])
	}
	return b.String()
}

// FormatPhone formats a Brazilian phone number as "(11) 98765-4321" or
// "(11) 3456-7890". Non-digits are ignored; digits beyond eleven are dropped.
// Input without digits yields "".
func FormatPhone(s string) string {
	var digits []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	n := string(digits)
	switch {
	case len(n) == 0:
		return ""
	case len(n) <= 2:
		return "(" + n
	case len(n) <= 6:
		return "(" + n[:2] + ") " + n[2:]
	case len(n) <= 10:
		return "(" + n[:2] + ") " + n[2:6] + "-" + n[6:]
	default:
		return "(" + n[:2] + ") " + n[2:7] + "-" + n[7:11]
	}
}
