package analytics

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// visitorHashLen is the hex length produced by visitorHash.
const visitorHashLen = 16

// Validate reports every problem with a payload read back from the stream.
func (p JobViewPayload) Validate() error {
	var errs []error
	if p.JobID == "" {
		errs = append(errs, errors.New("jid: required"))
	}
	if p.CompanyID == "" {
		errs = append(errs, errors.New("cid: required"))
	}
	if len(p.VisitorHash) != visitorHashLen {
		errs = append(errs, fmt.Errorf("vh: want %d hex chars, got %d", visitorHashLen, len(p.VisitorHash)))
	} else if _, err := hex.DecodeString(p.VisitorHash); err != nil {
		errs = append(errs, errors.New("vh: not hex"))
	}
	if p.CountryCode != "" && len(p.CountryCode) != 2 {
		errs = append(errs, fmt.Errorf("cc: %q is not a 2-letter code", p.CountryCode))
	}
	if p.ViewedAt <= 0 {
		errs = append(errs, errors.New("t: required"))
	}
	if len(p.Referrer) > maxMetaLength {
		errs = append(errs, errors.New("r: too long"))
	}
	if len(p.UserAgent) > maxMetaLength {
		errs = append(errs, errors.New("ua: too long"))
	}
	return errors.Join(errs...)
}
