// Package partition builds data-lake style partition directories of the form
// <zone>/<domain>/year=YYYY/month=MM/day=DD.
package partition

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the ISO date layout accepted for partition dates.
const DateLayout = "2006-01-02"

// Partition identifies one day of data for a zone and domain.
type Partition struct {
	Zone   string
	Domain string
	Date   time.Time
}

// New creates a partition from an ISO date string. An empty date means today
// in UTC.
func New(zone, domain, date string) (Partition, error) {
	p := Partition{
		Zone:   strings.TrimSpace(zone),
		Domain: strings.TrimSpace(domain),
	}

	if "" == strings.TrimSpace(date) {
		p.Date = time.Now().UTC()
	} else {
		d, err := time.Parse(DateLayout, strings.TrimSpace(date))
		if nil != err {
			return Partition{}, errors.Wrapf(err, "invalid partition date %q", date)
		}
		p.Date = d
	}

	if err := p.Validate(); nil != err {
		return Partition{}, err
	}

	return p, nil
}

// Validate checks that the zone and domain can be used as single path
// segments. An empty zone disables partitioning; an empty domain is skipped.
func (p Partition) Validate() error {
	for name, value := range map[string]string{"zone": p.Zone, "domain": p.Domain} {
		if strings.ContainsAny(value, `/\`) || "." == value || ".." == value {
			return errors.Errorf("partition %s %q must be a single path segment", name, value)
		}
	}

	if "" == p.Zone && "" != p.Domain {
		return errors.Errorf("partition domain %q requires a zone", p.Domain)
	}

	return nil
}

// Enabled reports whether the partition contributes a directory at all.
func (p Partition) Enabled() bool {
	return "" != p.Zone
}

// Dir returns the partition directory, or an empty string when partitioning
// is disabled.
func (p Partition) Dir() string {
	if !p.Enabled() {
		return ""
	}

	return path.Join(
		p.Zone,
		p.Domain,
		fmt.Sprintf("year=%04d", p.Date.Year()),
		fmt.Sprintf("month=%02d", int(p.Date.Month())),
		fmt.Sprintf("day=%02d", p.Date.Day()),
	)
}

// Join places a relative blob path below the partition directory.
func (p Partition) Join(rel string) string {
	dir := p.Dir()
	if "" == dir {
		return rel
	}

	return dir + "/" + rel
}
