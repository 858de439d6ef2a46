package models

// EpochStats holds the losses reported after one training epoch
type EpochStats struct {
	Epoch   int     `json:"epoch"`
	Loss    float64 `json:"loss"`
	ValLoss float64 `json:"val_loss"`
}

// TrainingHistory is the per-epoch record of a training run
type TrainingHistory struct {
	Epochs        []EpochStats `json:"epochs"`
	HasValidation bool         `json:"has_validation"`
}

// Final returns the stats of the last completed epoch
func (h TrainingHistory) Final() (EpochStats, bool) {
	if len(h.Epochs) == 0 {
		return EpochStats{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}
