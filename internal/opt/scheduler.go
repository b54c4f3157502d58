package opt

import "math"

// Scheduler adjusts the learning rate of an UpdateMethod over epochs.
type Scheduler interface {
	Step()
	StepWithLoss(loss float64)
	LR() float64
}

// BaseScheduler provides no-op defaults for Scheduler.
type BaseScheduler struct{}

func (s BaseScheduler) Step()                     {}
func (s BaseScheduler) StepWithLoss(loss float64) {}

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR struct {
	BaseScheduler
	method    UpdateMethod
	stepSize  int
	gamma     float64
	lastEpoch int
}

func NewStepLR(method UpdateMethod, stepSize int, gamma float64) *StepLR {
	return &StepLR{
		method:   method,
		stepSize: stepSize,
		gamma:    gamma,
	}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.stepSize > 0 && s.lastEpoch%s.stepSize == 0 {
		s.method.SetLearningRate(s.method.LearningRate() * s.gamma)
	}
}

func (s *StepLR) LR() float64 {
	return s.method.LearningRate()
}

// ExponentialLR decays the learning rate by gamma every epoch.
type ExponentialLR struct {
	BaseScheduler
	method UpdateMethod
	gamma  float64
}

func NewExponentialLR(method UpdateMethod, gamma float64) *ExponentialLR {
	return &ExponentialLR{
		method: method,
		gamma:  gamma,
	}
}

func (s *ExponentialLR) Step() {
	s.method.SetLearningRate(s.method.LearningRate() * s.gamma)
}

func (s *ExponentialLR) LR() float64 {
	return s.method.LearningRate()
}

// ReduceLROnPlateau reduces the learning rate when the loss has stopped
// improving for patience epochs.
type ReduceLROnPlateau struct {
	BaseScheduler
	method    UpdateMethod
	factor    float64
	patience  int
	threshold float64
	cooldown  int
	minLR     float64

	bestLoss        float64
	numBadEpochs    int
	cooldownCounter int
}

func NewReduceLROnPlateau(method UpdateMethod, factor float64, patience int, threshold float64, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		method:    method,
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		bestLoss:  math.MaxFloat64,
	}
}

// WithCooldown sets the number of epochs to wait after a reduction.
func (s *ReduceLROnPlateau) WithCooldown(epochs int) *ReduceLROnPlateau {
	s.cooldown = epochs
	return s
}

func (s *ReduceLROnPlateau) StepWithLoss(currentLoss float64) {
	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		return
	}

	if currentLoss < s.bestLoss-s.threshold {
		s.bestLoss = currentLoss
		s.numBadEpochs = 0
	} else {
		s.numBadEpochs++
	}

	if s.numBadEpochs >= s.patience {
		s.method.SetLearningRate(math.Max(s.method.LearningRate()*s.factor, s.minLR))
		s.numBadEpochs = 0
		s.cooldownCounter = s.cooldown
	}
}

func (s *ReduceLROnPlateau) LR() float64 {
	return s.method.LearningRate()
}
