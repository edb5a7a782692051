package sepay

import (
	"bytes"
	"fmt"
	"html/template"
)

// DefaultFormID is used by [CheckoutService.FormHTML] when no ID is given.
const DefaultFormID = "sepay-checkout-form"

// FormOptions customizes the rendered checkout form.
type FormOptions struct {
	ID     string
	Class  string
	Target string
	// SubmitLabel defaults to "Proceed to Payment".
	SubmitLabel    string
	NoSubmitButton bool
}

type formField struct {
	Name  string
	Value string
}

type formView struct {
	Action      string
	ID          string
	Class       string
	Target      string
	Fields      []formField
	Submit      bool
	SubmitLabel string
}

var (
	formTemplate = template.Must(template.New("form").Parse(`<form method="POST" action="{{.Action}}" id="{{.ID}}"{{with .Class}} class="{{.}}"{{end}}{{with .Target}} target="{{.}}"{{end}}>
{{range .Fields}}    <input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{end}}{{if .Submit}}    <button type="submit">{{.SubmitLabel}}</button>
{{end}}</form>`))

	autoSubmitTemplate = template.Must(template.New("autosubmit").Parse(`<script>document.getElementById({{.}}).submit();</script>`))
)

// FormHTML signs req and renders it as an HTML form posting to hosted
// checkout. Every value is HTML escaped.
func (s *CheckoutService) FormHTML(req CheckoutRequest, opts FormOptions) (template.HTML, error) {
	fields, err := s.BuildSignedFields(req)
	if err != nil {
		return "", err
	}
	view := formView{
		Action:      s.CheckoutURL(),
		ID:          opts.ID,
		Class:       opts.Class,
		Target:      opts.Target,
		Submit:      !opts.NoSubmitButton,
		SubmitLabel: opts.SubmitLabel,
	}
	if view.ID == "" {
		view.ID = DefaultFormID
	}
	if view.SubmitLabel == "" {
		view.SubmitLabel = "Proceed to Payment"
	}
	for _, name := range fields.Names() {
		view.Fields = append(view.Fields, formField{Name: name, Value: fields[name]})
	}
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		return "", newGenericError(fmt.Sprintf("render checkout form: %v", err), withCause(err))
	}
	return template.HTML(buf.String()), nil
}

// AutoSubmitScript returns a script tag that submits the form with formID.
func AutoSubmitScript(formID string) template.HTML {
	if formID == "" {
		formID = DefaultFormID
	}
	var buf bytes.Buffer
	_ = autoSubmitTemplate.Execute(&buf, formID)
	return template.HTML(buf.String())
}
