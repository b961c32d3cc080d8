package events

import "encoding/json"

// Number is a numeric identifier in event and query JSON. Servers have
// emitted these both as JSON strings and as JSON numbers across versions,
// so both wire forms decode; the value is held in string form.
type Number string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (n *Number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = Number(num.String())
	return nil
}

// Account identifies a Gerrit user as it appears in event and query JSON.
type Account struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Approval is one review vote on a patchset.
type Approval struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Value       string   `json:"value"`
	By          *Account `json:"by"`
}

// Patchset is one revision of a change.
type Patchset struct {
	Number    Number     `json:"number"`
	Revision  string     `json:"revision"`
	Ref       string     `json:"ref"`
	Uploader  *Account   `json:"uploader"`
	Approvals []Approval `json:"approvals"`
}

// Change is a Gerrit change under review. It is both the substantive
// record type of query responses and the subject of most stream events.
type Change struct {
	Project         string    `json:"project"`
	Branch          string    `json:"branch"`
	Topic           string    `json:"topic"`
	ID              string    `json:"id"`
	Number          Number    `json:"number"`
	Subject         string    `json:"subject"`
	URL             string    `json:"url"`
	Owner           *Account  `json:"owner"`
	CurrentPatchset *Patchset `json:"currentPatchSet"`
}

// RefUpdate describes a ref moving from one revision to another.
type RefUpdate struct {
	OldRev  string `json:"oldRev"`
	NewRev  string `json:"newRev"`
	RefName string `json:"refName"`
	Project string `json:"project"`
}
