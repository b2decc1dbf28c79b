package pricing

import (
	"math"
	"strconv"

	"github.com/sljivkov/ofz-bond-oracle/internal/exchange"
	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// moexDetailField names the MOEX description rows mapped onto
// oracle.BondDetails, per original_source/get_ofz_prices.go::get_bond_details.
const (
	fieldInitialFaceValue = "INITIALFACEVALUE"
	fieldFaceValue        = "FACEVALUE"
	fieldMatDate          = "MATDATE"
	fieldIssueDate        = "ISSUEDATE"
	fieldFaceUnit         = "FACEUNIT"
	fieldCouponValue      = "COUPONVALUE"
	fieldCouponPercent    = "COUPONPERCENT"
	fieldNextCoupon       = "NEXTCOUPON"
	fieldCouponFrequency  = "COUPONFREQUENCY"
	fieldCouponPeriod     = "COUPONPERIOD"
	fieldAccruedInt       = "ACCRUEDINT"
	fieldSecName          = "SECNAME"
	fieldIssueSize        = "ISSUESIZE"
	fieldISIN             = "ISIN"
	fieldRegNumber        = "REGNUMBER"
)

// BuildBondDetails maps a raw exchange description onto BondDetails,
// deriving couponFrequency from COUPONPERIOD when COUPONFREQUENCY is
// absent and falling back to maturity face value when initial face
// value is missing, exactly as original_source's get_bond_details does.
func BuildBondDetails(desc exchange.Description) oracle.BondDetails {
	var d oracle.BondDetails

	d.InitialFace = floatField(desc, fieldInitialFaceValue)
	d.MaturityFace = floatField(desc, fieldFaceValue)
	d.MaturityAt = stringField(desc, fieldMatDate)
	d.IssueDate = stringField(desc, fieldIssueDate)
	d.FaceCurrency = stringField(desc, fieldFaceUnit)
	d.CouponValue = floatField(desc, fieldCouponValue)
	d.CouponPercent = floatField(desc, fieldCouponPercent)
	d.NextCoupon = stringField(desc, fieldNextCoupon)
	d.AccruedInterest = floatField(desc, fieldAccruedInt)
	d.SecurityType = stringField(desc, fieldSecName)
	d.IssueSize = floatField(desc, fieldIssueSize)
	d.ISIN = stringField(desc, fieldISIN)
	d.RegistrationNumber = stringField(desc, fieldRegNumber)

	if freq := intField(desc, fieldCouponFrequency); freq != nil {
		d.CouponFrequency = freq
	} else if periodDays := floatField(desc, fieldCouponPeriod); periodDays != nil && *periodDays > 0 {
		annual := int(math.Round(365 / *periodDays))
		d.CouponFrequency = &annual
	}

	if d.InitialFace == nil && d.MaturityFace != nil {
		d.InitialFace = d.MaturityFace
	}

	return d
}

// ApplyScaling fills in the _uint companion fields of BondDetails
// using the same 3-decimal scaling rule prices use, per
// SPEC_FULL.md's "Supplemented features" #2.
func ApplyScaling(d *oracle.BondDetails, scalingFactor int64) error {
	if d.InitialFace != nil {
		v, err := Scale(*d.InitialFace, scalingFactor)
		if err != nil {
			return err
		}
		d.InitialFaceScaled = v
	}
	if d.MaturityFace != nil {
		v, err := Scale(*d.MaturityFace, scalingFactor)
		if err != nil {
			return err
		}
		d.MaturityFaceScaled = v
	}
	if d.CouponValue != nil {
		v, err := Scale(*d.CouponValue, scalingFactor)
		if err != nil {
			return err
		}
		d.CouponValueScaled = v
	}
	if d.AccruedInterest != nil {
		v, err := Scale(*d.AccruedInterest, scalingFactor)
		if err != nil {
			return err
		}
		d.AccruedInterestScaled = v
	}
	return nil
}

func floatField(desc exchange.Description, name string) *float64 {
	raw, ok := desc[name]
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intField(desc exchange.Description, name string) *int {
	raw, ok := desc[name]
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func stringField(desc exchange.Description, name string) *string {
	raw, ok := desc[name]
	if !ok || raw == "" {
		return nil
	}
	return &raw
}
