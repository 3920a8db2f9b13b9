package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pbaille/calsync/internal/domain"
)

// Schema is the OpenAPI 3.0 subset accepted as a Gemini response schema
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Format      string             `json:"format,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

func str(desc string) *Schema { return &Schema{Type: "string", Description: desc} }
func num(v float64) *float64  { return &v }

// Event describes one domain.Event
func Event() *Schema {
	categories := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		categories[i] = string(c)
	}

	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"start_date": str("Data de início do evento (YYYY-MM-DD)"),
			"end_date":   str("Data de término do evento, se for um intervalo"),
			"dates": {
				Type:        "array",
				Description: "Lista de datas específicas",
				Items:       &Schema{Type: "string"},
			},
			"description": str("Descrição detalhada do evento acadêmico"),
			"category": {
				Type:        "string",
				Description: "Classificação do tipo de evento",
				Enum:        categories,
			},
			"has_class": {Type: "boolean", Description: "Indica se há aula neste dia"},
			"notes":     str("Campo opcional para observações"),
		},
		Required: []string{"description", "category", "has_class"},
	}
}

// Calendar describes domain.Calendar, the shape the model must answer with
func Calendar() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"institution": str("Nome da instituição"),
			"year": {
				Type:        "integer",
				Description: "Ano letivo",
				Minimum:     num(2000),
				Maximum:     num(2100),
			},
			"semester": {
				Type:        "string",
				Description: "Semestre do calendário (1 ou 2)",
				Enum:        []string{"1", "2"},
			},
			"months": {
				Type:        "array",
				Description: "Lista dos meses cobertos",
				Items: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"month": str("Nome do mês"),
						"events": {
							Type:        "array",
							Description: "Eventos ocorridos no mês",
							Items:       Event(),
						},
					},
					Required: []string{"month", "events"},
				},
			},
			"summary": {
				Type: "object",
				Properties: map[string]*Schema{
					"total_school_days": {Type: "integer", Description: "Total de dias letivos"},
				},
			},
		},
		Required: []string{"year", "semester", "months"},
	}
}

// Marshal renders the calendar schema with 2-space indentation.
func Marshal() ([]byte, error) {
	return json.MarshalIndent(Calendar(), "", "  ")
}

// WriteFile writes the calendar schema to path.
func WriteFile(path string) error {
	data, err := Marshal()
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
