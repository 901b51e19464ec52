package ga

// PopulationLimit tells when a generation is full.
type PopulationLimit[T Chromosome[T]] interface {
	IsPopulationFull(population []T) bool
}

// IndividualPopulationLimit counts individuals.
type IndividualPopulationLimit[T Chromosome[T]] struct {
	Limit int
}

// IsPopulationFull implements PopulationLimit.
func (l IndividualPopulationLimit[T]) IsPopulationFull(population []T) bool {
	return len(population) >= l.Limit
}

// SizePopulationLimit counts the summed size, i.e. tests for suites.
type SizePopulationLimit[T Chromosome[T]] struct {
	Limit int
}

// IsPopulationFull implements PopulationLimit.
func (l SizePopulationLimit[T]) IsPopulationFull(population []T) bool {
	total := 0
	for _, c := range population {
		total += c.Size()
	}

	return total >= l.Limit
}

// StatementsPopulationLimit counts the summed total length.
type StatementsPopulationLimit[T Chromosome[T]] struct {
	Limit int
}

// IsPopulationFull implements PopulationLimit.
func (l StatementsPopulationLimit[T]) IsPopulationFull(population []T) bool {
	total := 0
	for _, c := range population {
		total += lengthOf(c)
	}

	return total >= l.Limit
}

// LimitKind selects a PopulationLimit.
type LimitKind string

// Supported limits.
const (
	LimitIndividuals LimitKind = "individuals"
	LimitTests       LimitKind = "tests"
	LimitStatements  LimitKind = "statements"
)

// NewPopulationLimit builds the limit of the given kind.
func NewPopulationLimit[T Chromosome[T]](kind LimitKind, limit int) PopulationLimit[T] {
	switch kind {
	case LimitTests:
		return SizePopulationLimit[T]{Limit: limit}
	case LimitStatements:
		return StatementsPopulationLimit[T]{Limit: limit}
	case LimitIndividuals:
	}

	return IndividualPopulationLimit[T]{Limit: limit}
}

// BloatControl rejects offspring that grew too much.
type BloatControl[T Chromosome[T]] interface {
	IsTooLong(individual T) bool
}

// MaxSizeBloatControl rejects individuals with more than Max genes.
type MaxSizeBloatControl[T Chromosome[T]] struct {
	Max int
}

// IsTooLong implements BloatControl.
func (b MaxSizeBloatControl[T]) IsTooLong(individual T) bool {
	return individual.Size() > b.Max
}

// MaxLengthBloatControl rejects individuals whose total length exceeds Max.
type MaxLengthBloatControl[T Chromosome[T]] struct {
	Max int
}

// IsTooLong implements BloatControl.
func (b MaxLengthBloatControl[T]) IsTooLong(individual T) bool {
	return lengthOf(individual) > b.Max
}
