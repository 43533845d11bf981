package http

import (
	"errors"
	"html/template"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"martelinho/internal/auth"
	"martelinho/internal/core"
	"martelinho/internal/finance"
)

const (
	msgDashboardUnavailable = "Não foi possível carregar os dados financeiros. Tente novamente em instantes."
	msgServiceNotFound      = "Serviço não encontrado"
	msgSaveFailed           = "Não foi possível salvar o serviço. Tente novamente."
	msgDeleteFailed         = "Não foi possível excluir o serviço. Tente novamente."
	msgInvoiceFailed        = "Não foi possível gerar a nota fiscal."
	msgInvalidRequest       = "Requisição inválida"
	msgInvalidMonth         = "Mês inválido"
	msgTooManyAttempts      = "Muitas tentativas. Aguarde um minuto e tente novamente."
	msgServiceSaved         = "Serviço salvo com sucesso"
	msgServiceDeleted       = "Serviço excluído"
	msgUnexpected           = "Ocorreu um erro inesperado. Tente novamente."
)

// userMessage translates a domain error into the pt-BR text shown to users.
func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyClientName):
		return "Informe o nome do cliente"
	case errors.Is(err, core.ErrInvalidDate):
		return "Informe uma data válida"
	case errors.Is(err, core.ErrEmptyCarPlate):
		return "Informe a placa do veículo"
	case errors.Is(err, core.ErrEmptyCarModel):
		return "Informe o modelo do veículo"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Informe um valor válido (ex.: 1.250,00)"
	case errors.Is(err, core.ErrNoRepairedParts):
		return "Selecione pelo menos uma peça reparada"
	case errors.Is(err, core.ErrUnknownPart):
		return "Peça reparada inválida"
	case errors.Is(err, auth.ErrMissingFields):
		return "Preencha todos os campos obrigatórios"
	case errors.Is(err, auth.ErrPasswordTooShort):
		return "A senha deve ter pelo menos 6 caracteres"
	case errors.Is(err, auth.ErrInvalidEmail):
		return "Informe um e-mail válido"
	case errors.Is(err, auth.ErrEmailTaken):
		return "Este e-mail já está cadastrado"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "E-mail ou senha inválidos"
	case errors.Is(err, errPasswordMismatch):
		return "As senhas não conferem"
	default:
		return msgUnexpected
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatGrowth renders a growth rate as "+12,5%"; months without a
// previous month to compare against show a dash.
func formatGrowth(g finance.GrowthRate) string {
	if !g.Applicable {
		return "—"
	}
	p := math.Round(g.Percent*10) / 10
	s := strings.Replace(strconv.FormatFloat(math.Abs(p), 'f', 1, 64), ".", ",", 1)
	switch {
	case p > 0:
		return "+" + s + "%"
	case p < 0:
		return "-" + s + "%"
	default:
		return s + "%"
	}
}

func growthClass(g finance.GrowthRate) string {
	switch {
	case !g.Applicable:
		return "trend--na"
	case g.Percent > 0:
		return "trend--up"
	case g.Percent < 0:
		return "trend--down"
	default:
		return "trend--flat"
	}
}

// monthValue is the month selector value "2024-02".
func monthValue(d core.Date) string {
	return d.Format("2006-01")
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"brl":         func(m core.Money) string { return core.FormatBRL(m.Cents) },
		"dateBR":      core.FormatDateBR,
		"dateLong":    core.FormatDateLong,
		"parts":       core.FormatParts,
		"growth":      formatGrowth,
		"growthClass": growthClass,
		"monthValue":  monthValue,
		"title":       titleCase,
	}
}

// titleCase turns "março 2024" into "Março 2024". A Caser keeps state, so
// one is built per call.
func titleCase(s string) string {
	return cases.Title(language.BrazilianPortuguese).String(s)
}
