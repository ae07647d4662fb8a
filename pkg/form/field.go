package form

import "fmt"

type FieldType string

const (
	FieldHidden    FieldType = "Hidden"
	FieldImage     FieldType = "Image"
	FieldLabel     FieldType = "Label"
	FieldLongText  FieldType = "LongText"
	FieldCheckbox  FieldType = "Checkbox"
	FieldRadio     FieldType = "Radio"
	FieldSelect    FieldType = "Select"
	FieldShortText FieldType = "ShortText"
)

// Field describes one column of the dataset shown to a worker.
type Field struct {
	Name        string    `json:"name" koanf:"name" validate:"required"`
	Type        FieldType `json:"type" koanf:"type" validate:"oneof=Hidden Image Label LongText Checkbox Radio Select ShortText"`
	Description string    `json:"description" koanf:"description"`
	Options     []string  `json:"options" koanf:"options"`
}

// Editable reports whether a worker fills in the field. Only labels are
// read-only content.
func (f Field) Editable() bool {
	return f.Type != FieldLabel
}

func (f Field) HasOptions() bool {
	return f.Type == FieldRadio || f.Type == FieldSelect
}

func (f Field) Validate() error {
	if f.HasOptions() && len(f.Options) == 0 {
		return fmt.Errorf("field %s: %s requires options", f.Name, f.Type)
	}
	return nil
}
