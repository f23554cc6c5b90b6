package indicators

import (
	"fmt"

	"chartpattern-scanner/internal/models"
)

// VolumeSMA calculates a Simple Moving Average of volume.
type VolumeSMA struct {
	period int
}

// NewVolumeSMA creates a new volume SMA indicator.
func NewVolumeSMA(period int) *VolumeSMA {
	return &VolumeSMA{period: period}
}

func (v *VolumeSMA) Name() string {
	return fmt.Sprintf("VOL_SMA_%d", v.period)
}

func (v *VolumeSMA) Period() int {
	return v.period
}

func (v *VolumeSMA) Calculate(candles []models.Candle) ([]float64, error) {
	if v.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return RollingMean(models.Volumes(candles), v.period), nil
}
