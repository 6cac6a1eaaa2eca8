package transport

import "encoding/json"

// Envelope wraps every API payload, success or error, in one shape so
// clients can branch on status without sniffing the body.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// PageMeta echoes the paging window a list endpoint actually applied.
type PageMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// UpdateMeta reports how many tasks a review transition touched. For a
// bundle this is the member count; zero never reaches the client because
// a held-back transition surfaces as an error instead.
type UpdateMeta struct {
	RowsChanged int64 `json:"rows_changed"`
}

// NewSuccess builds a success envelope around data and optional meta.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewError builds an error envelope carrying a machine-readable code.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String renders the envelope as JSON for log lines, best effort.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
