package ridb

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// searchResponse is the envelope returned by the facilities endpoint
type searchResponse struct {
	RecData  []facilityRecord `json:"RECDATA"`
	Metadata struct {
		Results struct {
			CurrentCount int `json:"CURRENT_COUNT"`
			TotalCount   int `json:"TOTAL_COUNT"`
		} `json:"RESULTS"`
	} `json:"METADATA"`
}

// facilityRecord holds the RIDB facility fields we care about. Pointers
// distinguish a missing field from an empty one.
type facilityRecord struct {
	FacilityID   *flexibleID `json:"FacilityID"`
	FacilityName *string     `json:"FacilityName"`
	FacilityType *string     `json:"FacilityTypeDescription"`
}

// flexibleID accepts facility IDs encoded as JSON strings or numbers
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("facility id is neither string nor number: %s", string(data))
	}
	*f = flexibleID(n.String())
	return nil
}

// SearchParams describes a radius search around a coordinate
type SearchParams struct {
	Latitude    float64
	Longitude   float64
	RadiusMiles float64
}
