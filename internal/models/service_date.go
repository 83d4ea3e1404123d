package models

import (
	"encoding/json"
	"time"
)

// serviceDateFormat is the GTFS calendar spelling of a day, e.g. "20181204".
const serviceDateFormat = "20060102"

// ServiceDate is the calendar day whose schedule a feed materializes. It
// marshals as a bare "YYYYMMDD" string, the way GTFS calendars spell dates.
type ServiceDate time.Time

// MarshalJSON serializes the ServiceDate in "YYYYMMDD" format.
func (d ServiceDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(serviceDateFormat))
}

// UnmarshalJSON parses a "YYYYMMDD" formatted string into a ServiceDate.
func (d *ServiceDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(serviceDateFormat, s)
	if err != nil {
		return err
	}
	*d = ServiceDate(t)
	return nil
}

// Time returns the underlying time.Time value of the ServiceDate.
func (d ServiceDate) Time() time.Time {
	return time.Time(d)
}
