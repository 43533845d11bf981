// Package invoice builds the service invoice ("nota fiscal de serviço") of a
// record and renders it as an A4 PDF.
package invoice

import (
	"strconv"
	"strings"

	"martelinho/internal/core"
)

const (
	Brand          = "MARTELINHO DE OURO"
	Title          = "NOTA FISCAL DE SERVIÇO"
	phoneFallback  = "Não informado"
	warrantyTerm   = "A garantia deste serviço é válida por 90 dias a partir da data de emissão desta nota fiscal."
	paymentTerm    = "O pagamento deve ser realizado no ato da entrega do veículo."
	orderNumberLen = 8
)

// Section headings in document order.
const (
	SectionClient       = "DADOS DO CLIENTE"
	SectionVehicle      = "DADOS DO VEÍCULO"
	SectionServices     = "SERVIÇOS REALIZADOS"
	SectionParts        = "PEÇAS REPARADAS"
	SectionObservations = "OBSERVAÇÕES"
	SectionTerms        = "TERMOS E CONDIÇÕES"
	SectionSignatures   = "ASSINATURAS"
)

type Align byte

const (
	AlignLeft   Align = 'L'
	AlignCenter Align = 'C'
	AlignRight  Align = 'R'
)

// Field is a bold label followed by its value.
type Field struct {
	Label string
	Value string
}

// Column of a table; Width is a fraction of the content width.
type Column struct {
	Header string
	Width  float64
	Align  Align
}

type Table struct {
	Columns []Column
	Rows    [][]string
}

// Section is one titled block. Only the non-empty parts are laid out, in
// the order Fields, Table, Total, Bullets, Paragraphs, Signatures.
type Section struct {
	Heading    string
	Fields     []Field
	Table      *Table
	Total      *Field
	Bullets    []string
	Paragraphs []string
	Boxed      bool
	Signatures []string
}

// Document is the layout-independent content of an invoice.
type Document struct {
	FileName    string
	Brand       string
	Title       string
	OrderNumber string
	AuthCode    string
	Date        string
	Sections    []Section
	Footer      string
}

// FileName returns "nota-fiscal-<auth code>.pdf".
func FileName(r core.ServiceRecord) string {
	code := r.AuthCode
	if code == "" {
		code = OrderNumber(r)
	}
	return "nota-fiscal-" + code + ".pdf"
}

// OrderNumber is the first eight characters of the record id, upper-cased.
func OrderNumber(r core.ServiceRecord) string {
	id := r.ID
	if len(id) > orderNumberLen {
		id = id[:orderNumberLen]
	}
	return strings.ToUpper(id)
}

// Build assembles the invoice of r. The services table has one line per
// repaired part with the value split equally between them; the optional
// observations section only appears when the record has notes.
func Build(r core.ServiceRecord) Document {
	doc := Document{
		FileName:    FileName(r),
		Brand:       Brand,
		Title:       Title,
		OrderNumber: OrderNumber(r),
		AuthCode:    r.AuthCode,
		Date:        core.FormatDateBR(r.ServiceDate),
		Footer:      "Código de Autenticação: " + r.AuthCode,
	}

	doc.Sections = append(doc.Sections,
		Section{
			Heading: SectionClient,
			Boxed:   true,
			Fields: []Field{
				{Label: "Nome", Value: r.ClientName},
				{Label: "Telefone", Value: phoneFallback},
			},
		},
		Section{
			Heading: SectionVehicle,
			Boxed:   true,
			Fields: []Field{
				{Label: "Modelo", Value: r.CarModel},
				{Label: "Placa", Value: r.CarPlate},
			},
		},
		Section{
			Heading: SectionServices,
			Table:   servicesTable(r),
			Total:   &Field{Label: "TOTAL", Value: core.FormatBRL(r.ServiceValue.Cents)},
		},
		Section{
			Heading: SectionParts,
			Bullets: partLabels(r.RepairedParts),
		},
	)

	if notes := strings.TrimSpace(r.Notes); notes != "" {
		doc.Sections = append(doc.Sections, Section{
			Heading:    SectionObservations,
			Boxed:      true,
			Paragraphs: []string{notes},
		})
	}

	doc.Sections = append(doc.Sections,
		Section{
			Heading:    SectionTerms,
			Paragraphs: []string{warrantyTerm, paymentTerm},
		},
		Section{
			Heading:    SectionSignatures,
			Signatures: []string{"Assinatura do Cliente", "Assinatura do Responsável"},
		},
	)
	return doc
}

func servicesTable(r core.ServiceRecord) *Table {
	t := &Table{Columns: []Column{
		{Header: "Item", Width: 0.10, Align: AlignCenter},
		{Header: "Descrição", Width: 0.65, Align: AlignLeft},
		{Header: "Valor", Width: 0.25, Align: AlignRight},
	}}
	if len(r.RepairedParts) == 0 {
		t.Rows = [][]string{{"1", "Serviço de Funilaria e Pintura", core.FormatBRL(r.ServiceValue.Cents)}}
		return t
	}
	shares := r.ServiceValue.Split(len(r.RepairedParts))
	for i, p := range r.RepairedParts {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1),
			"Reparo - " + p.Label(),
			core.FormatBRL(shares[i].Cents),
		})
	}
	return t
}

func partLabels(parts []core.RepairedPart) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.Label()
	}
	return out
}

// Section returns the section with the given heading, or nil.
func (d Document) Section(heading string) *Section {
	for i := range d.Sections {
		if d.Sections[i].Heading == heading {
			return &d.Sections[i]
		}
	}
	return nil
}
