package swap

import (
	"fmt"
	"time"

	"github.com/meenmo/quantlib/utils"
)

// GenerateSchedule rolls back from maturity in steps of leg.PaymentMonths,
// leaving any short stub at the front. Dates are not business-day adjusted.
func GenerateSchedule(effective, maturity time.Time, leg LegConvention) ([]SchedulePeriod, error) {
	if !maturity.After(effective) {
		return nil, fmt.Errorf("GenerateSchedule: maturity (%s) must be after effective (%s)", utils.FormatDate(maturity), utils.FormatDate(effective))
	}
	if leg.PaymentMonths <= 0 {
		return nil, fmt.Errorf("GenerateSchedule: PaymentMonths must be positive, got %d", leg.PaymentMonths)
	}

	ends := []time.Time{maturity}
	for k := 1; ; k++ {
		d := utils.AddMonth(maturity, -k*leg.PaymentMonths)
		if !d.After(effective) {
			break
		}
		ends = append(ends, d)
	}

	periods := make([]SchedulePeriod, 0, len(ends))
	start := effective
	for i := len(ends) - 1; i >= 0; i-- {
		end := ends[i]
		accrual, err := utils.YearFraction(start, end, leg.DayCount)
		if err != nil {
			return nil, fmt.Errorf("GenerateSchedule: %w", err)
		}
		periods = append(periods, SchedulePeriod{
			StartDate: start,
			EndDate:   end,
			PayDate:   end,
			Accrual:   accrual,
		})
		start = end
	}
	return periods, nil
}
