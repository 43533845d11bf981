package core

import (
	"encoding/json"
	"strings"
)

// RepairedPart is a tag from the closed vocabulary of body parts.
type RepairedPart string

const (
	PartCapo                     RepairedPart = "capo"
	PartTeto                     RepairedPart = "teto"
	PartTampaTraseira            RepairedPart = "tampa traseira"
	PartParalamaDianteiroEsq     RepairedPart = "paralama dianteiro esquerdo"
	PartParalamaDianteiroDir     RepairedPart = "paralama dianteiro direito"
	PartPortaDianteiraEsq        RepairedPart = "porta dianteira esquerda"
	PartPortaDianteiraDir        RepairedPart = "porta dianteira direita"
	PartPortaTraseiraEsq         RepairedPart = "porta traseira esquerda"
	PartPortaTraseiraDir         RepairedPart = "porta traseira direita"
	PartLateralTraseiraEsq       RepairedPart = "lateral traseira esquerda"
	PartLateralTraseiraDir       RepairedPart = "lateral traseira direita"
	PartParachoqueDianteiro      RepairedPart = "parachoque dianteiro"
	PartParachoqueTraseiro       RepairedPart = "parachoque traseiro"
	PartColunaEsq                RepairedPart = "coluna lado esquerdo"
	PartColunaDir                RepairedPart = "coluna lado direito"
	PartPolimento                RepairedPart = "polimento"
	PartPintura                  RepairedPart = "pintura"
	PartOutros                   RepairedPart = "outros"
)

// RepairedParts lists the vocabulary in display order.
var RepairedParts = []RepairedPart{
	PartCapo,
	PartTeto,
	PartTampaTraseira,
	PartParalamaDianteiroEsq,
	PartParalamaDianteiroDir,
	PartPortaDianteiraEsq,
	PartPortaDianteiraDir,
	PartPortaTraseiraEsq,
	PartPortaTraseiraDir,
	PartLateralTraseiraEsq,
	PartLateralTraseiraDir,
	PartParachoqueDianteiro,
	PartParachoqueTraseiro,
	PartColunaEsq,
	PartColunaDir,
	PartPolimento,
	PartPintura,
	PartOutros,
}

var partIndex = func() map[RepairedPart]int {
	m := make(map[RepairedPart]int, len(RepairedParts))
	for i, p := range RepairedParts {
		m[p] = i
	}
	return m
}()

func (p RepairedPart) Valid() bool {
	_, ok := partIndex[p]
	return ok
}

// Label capitalizes the first letter, e.g. "Tampa traseira".
func (p RepairedPart) Label() string {
	return capitalize(string(p))
}

// ParsePart matches a tag case-insensitively against the vocabulary.
func ParsePart(s string) (RepairedPart, bool) {
	p := RepairedPart(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// SortParts de-duplicates parts and orders them as in the vocabulary.
// Unknown tags are kept at the end so validation can still report them.
func SortParts(in []RepairedPart) []RepairedPart {
	seen := make(map[RepairedPart]bool, len(in))
	var unknown []RepairedPart
	for _, p := range in {
		if seen[p] {
			continue
		}
		seen[p] = true
		if !p.Valid() {
			unknown = append(unknown, p)
		}
	}
	out := make([]RepairedPart, 0, len(seen))
	for _, p := range RepairedParts {
		if seen[p] {
			out = append(out, p)
		}
	}
	return append(out, unknown...)
}

// CoerceParts reads the repaired parts field as it arrives from storage:
// a JSON array, a JSON object of values, a single tag, or a Go slice.
// Anything unreadable yields an empty list. Unknown tags are dropped.
func CoerceParts(v any) []RepairedPart {
	var raw []string
	switch val := v.(type) {
	case nil:
		return nil
	case []RepairedPart:
		return SortParts(filterKnown(val))
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []byte:
		return CoerceParts(string(val))
	case string:
		raw = decodePartsString(val)
	default:
		return nil
	}
	parts := make([]RepairedPart, 0, len(raw))
	for _, s := range raw {
		if p, ok := ParsePart(s); ok {
			parts = append(parts, p)
		}
	}
	return SortParts(parts)
}

func decodePartsString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch s[0] {
	case '[':
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil
		}
		return list
	case '{':
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil
		}
		var list []string
		for _, v := range obj {
			if str, ok := v.(string); ok && str != "" {
				list = append(list, str)
			}
		}
		return list
	default:
		return []string{s}
	}
}

func filterKnown(in []RepairedPart) []RepairedPart {
	out := in[:0:0]
	for _, p := range in {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

// EncodeParts is the storage representation: a JSON array of tags.
func EncodeParts(parts []RepairedPart) string {
	list := make([]string, len(parts))
	for i, p := range parts {
		list[i] = string(p)
	}
	b, _ := json.Marshal(list)
	return string(b)
}
