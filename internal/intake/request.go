// Package intake turns the two accepted wire shapes of a customer
// provisioning submission (multipart form with an optional floor-plan file,
// or a plain JSON body) into one validated Request.
package intake

// ServiceKind names a recurring maintenance service a customer can subscribe to.
type ServiceKind string

const (
	ServicePeriodicInspection ServiceKind = "periodicInspection"
	ServiceFilterReplacement  ServiceKind = "filterReplacement"
	ServiceVOCTreatment       ServiceKind = "vocTreatment"
)

// Services holds the service selection flags of a submission.
type Services struct {
	PeriodicInspection bool `json:"periodicInspection"`
	FilterReplacement  bool `json:"filterReplacement"`
	VOCTreatment       bool `json:"vocTreatment"`
}

// Enabled returns the selected services in provisioning order.
func (s Services) Enabled() []ServiceKind {
	out := make([]ServiceKind, 0, 3)
	if s.PeriodicInspection {
		out = append(out, ServicePeriodicInspection)
	}
	if s.FilterReplacement {
		out = append(out, ServiceFilterReplacement)
	}
	if s.VOCTreatment {
		out = append(out, ServiceVOCTreatment)
	}
	return out
}

// FilterSpec describes one replacement filter. Dimensions are nil when the
// submitted value was empty or not a finite number.
type FilterSpec struct {
	Type     string   `json:"type"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Depth    *float64 `json:"depth,omitempty"`
	Quantity int      `json:"quantity"`
}

// VOCSpec describes the VOC treatment filter.
type VOCSpec struct {
	FilterType string `json:"filterType"`
	Quantity   int    `json:"quantity"`
}

// Attachment is an uploaded floor-plan file held in memory.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request is the normalized provisioning input.
//
// Filters is empty unless Services.FilterReplacement is set, and VOC is nil
// unless Services.VOCTreatment is set.
type Request struct {
	Name               string       `json:"name"`
	Phone              string       `json:"phone"`
	Email              string       `json:"email"`
	Address            string       `json:"address"`
	NotificationPhones []string     `json:"notificationPhones"`
	Services           Services     `json:"services"`
	Filters            []FilterSpec `json:"filters,omitempty"`
	VOC                *VOCSpec     `json:"voc,omitempty"`
	FloorPlan          *Attachment  `json:"-"`
}
