package model

import "encoding/xml"

// Invoice is the machine-readable invoice carried in a structured content slot.
// The same structure decodes from the JSON and the XML encoding.
type Invoice struct {
	XMLName   xml.Name      `json:"-" xml:"invoice"`
	ID        string        `json:"id" xml:"id" validate:"required"`
	IssueDate string        `json:"issueDate" xml:"issueDate" validate:"required,datetime=2006-01-02"`
	DueDate   string        `json:"dueDate,omitempty" xml:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Currency  string        `json:"currency" xml:"currency" validate:"required,len=3,uppercase"`
	Patient   Party         `json:"patient" xml:"patient"`
	Provider  Party         `json:"provider" xml:"provider"`
	Payer     *Party        `json:"payer,omitempty" xml:"payer,omitempty"`
	Lines     []InvoiceLine `json:"lines" xml:"lines>line" validate:"required,min=1,dive"`
	Total     float64       `json:"total" xml:"total" validate:"gte=0"`
	Note      string        `json:"note,omitempty" xml:"note,omitempty"`
}

// Party is a patient, provider or payer.
type Party struct {
	Reference  string `json:"reference" xml:"reference" validate:"required"`
	Name       string `json:"name,omitempty" xml:"name,omitempty"`
	Identifier string `json:"identifier,omitempty" xml:"identifier,omitempty"`
}

// InvoiceLine is a single billed service.
type InvoiceLine struct {
	Code        string  `json:"code" xml:"code" validate:"required"`
	Description string  `json:"description,omitempty" xml:"description,omitempty"`
	Date        string  `json:"date,omitempty" xml:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Quantity    float64 `json:"quantity" xml:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" xml:"unitPrice" validate:"gte=0"`
	Amount      float64 `json:"amount" xml:"amount" validate:"gte=0"`
}

// SubjectReference returns the patient reference, if any.
func (i *Invoice) SubjectReference() *Reference {
	if i == nil || i.Patient.Reference == "" {
		return nil
	}
	return &Reference{Reference: i.Patient.Reference, Display: i.Patient.Name}
}
