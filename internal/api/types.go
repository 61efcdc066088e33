package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
)

// EntityKind names a backend collection
type EntityKind string

const (
	KindClients  EntityKind = "clients"
	KindOrders   EntityKind = "orders"
	KindInvoices EntityKind = "invoices"
	KindPayments EntityKind = "payments"
	KindPrinters EntityKind = "printers"
	KindSpools   EntityKind = "spools"
)

var entityPaths = map[EntityKind]string{
	KindClients:  "/api/v1/business/clients",
	KindOrders:   "/api/v1/business/orders",
	KindInvoices: "/api/v1/business/invoices",
	KindPayments: "/api/v1/business/payments",
	KindPrinters: "/api/v1/printers",
	KindSpools:   "/api/v1/materials/spools",
}

// EntityKinds lists the supported kinds
func EntityKinds() []EntityKind {
	return []EntityKind{KindClients, KindOrders, KindInvoices, KindPayments, KindPrinters, KindSpools}
}

// ParseEntityKind validates a kind name
func ParseEntityKind(s string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := entityPaths[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return kind, nil
}

// Filter narrows an entity listing
type Filter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// Entity is one record of any collection. ID is required; the common name and
// status fields are lifted out and everything else stays in Attributes.
type Entity struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name,omitempty"`
	Status     string                     `json:"status,omitempty"`
	Attributes map[string]json.RawMessage `json:"attributes,omitempty"`
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: entity is not an object", ErrShapeMismatch)
	}
	raw, ok := fields["id"]
	if !ok {
		return fmt.Errorf("%w: entity without id", ErrShapeMismatch)
	}
	id, err := scalarString(raw)
	if err != nil || id == "" {
		return fmt.Errorf("%w: entity id must be a string or number", ErrShapeMismatch)
	}
	e.ID = id
	delete(fields, "id")

	for key, dst := range map[string]*string{"name": &e.Name, "status": &e.Status} {
		if raw, ok := fields[key]; ok {
			if v, err := scalarString(raw); err == nil {
				*dst = v
				delete(fields, key)
			}
		}
	}
	if len(fields) > 0 {
		e.Attributes = fields
	}
	return nil
}

// Attribute decodes one extra field into v
func (e Entity) Attribute(key string, v any) error {
	raw, ok := e.Attributes[key]
	if !ok {
		return fmt.Errorf("attribute %q not present", key)
	}
	return json.Unmarshal(raw, v)
}

func scalarString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// OrderID identifies a created order
type OrderID string

// OrderPayload creates an order carrying the quote snapshot
type OrderPayload struct {
	Reference string           `json:"reference"`
	ClientID  string           `json:"client_id,omitempty"`
	FileName  string           `json:"file_name"`
	Geometry  analysis.Summary `json:"geometry"`
	Settings  pricing.Settings `json:"settings"`
	Pricing   pricing.Result   `json:"pricing"`
	Notes     string           `json:"notes,omitempty"`
}

type orderCreated struct {
	ID string `json:"id"`
}

// PrinterCommand is a remote printer action
type PrinterCommand string

const (
	CommandPause    PrinterCommand = "pause"
	CommandResume   PrinterCommand = "resume"
	CommandCancel   PrinterCommand = "cancel"
	CommandHome     PrinterCommand = "home"
	CommandPreheat  PrinterCommand = "preheat"
	CommandCooldown PrinterCommand = "cooldown"
)

var printerCommands = map[PrinterCommand]bool{
	CommandPause: true, CommandResume: true, CommandCancel: true,
	CommandHome: true, CommandPreheat: true, CommandCooldown: true,
}

// ParsePrinterCommand validates a command name
func ParsePrinterCommand(s string) (PrinterCommand, error) {
	cmd := PrinterCommand(strings.ToLower(strings.TrimSpace(s)))
	if !printerCommands[cmd] {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	return cmd, nil
}

type printerControl struct {
	Command PrinterCommand `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// SlicerSettings are the form fields of a slicer estimate request
type SlicerSettings struct {
	LayerHeight   float64
	InfillPercent int
	WallCount     int
	Material      string
	Supports      bool
	Brim          bool
}

type slicerResponse struct {
	Success          bool    `json:"success"`
	FilamentUsedG    float64 `json:"filament_used_g"`
	PrintTimeSeconds float64 `json:"print_time_seconds"`
	LayerCount       int     `json:"layer_count"`
	Source           string  `json:"source"`
	Error            string  `json:"error,omitempty"`
}
