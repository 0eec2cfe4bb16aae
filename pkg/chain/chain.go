package chain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/bomeara/bamm/pkg/phylo"
)

// EventRatePrior evaluates the prior density of the event-rate
// hyperparameter. Implemented by prior.PoissonRatePrior.
type EventRatePrior interface {
	LogDensity(x float64) float64
}

// ParamsFactory draws a fresh model-specific payload for a newly proposed
// event.
type ParamsFactory func(rng *rand.Rand) Params

// Settings holds the proposal-tuning knobs consumed by a chain. All values
// come from the external configuration layer.
type Settings struct {
	// PoissonRatePrior is the rate parameter of the exponential prior on
	// the event rate; the chain initializes its event rate to its inverse.
	PoissonRatePrior float64

	// UpdateEventLocationScale scales local moves as a fraction of the
	// maximum root-to-tip cumulative branch length.
	UpdateEventLocationScale float64

	// UpdateEventRateScale is the log-scale window of event-rate proposals.
	UpdateEventRateScale float64

	// LocalGlobalMoveRatio is the odds of proposing a local move over a
	// global one.
	LocalGlobalMoveRatio float64
}

// DefaultSettings returns the conventional tuning values.
func DefaultSettings() Settings {
	return Settings{
		PoissonRatePrior:         1.0,
		UpdateEventLocationScale: 0.05,
		UpdateEventRateScale:     2.0,
		LocalGlobalMoveRatio:     10.0,
	}
}

// Coldness is the process-wide annealing factor shared across the
// independently run chains of a Metropolis-coupled ensemble. Chains only
// read it; an external ensemble coordinator updates it between chain steps.
type Coldness struct {
	bits atomic.Uint64
}

// NewColdness returns a coldness factor initialized to 1 (no annealing).
func NewColdness() *Coldness {
	c := &Coldness{}
	c.Set(1.0)

	return c
}

// Value returns the current coldness factor.
func (c *Coldness) Value() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Set updates the coldness factor. Reserved for the ensemble coordinator;
// chain logic never calls it.
func (c *Coldness) Set(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Chain owns the event state of a single MCMC chain: the event index, the
// per-branch histories (stored in an arena parallel to the tree's node
// order, so the tree itself stays read-only and shareable), the root event,
// and the accept/reject bookkeeping. A chain is single-threaded; every move
// runs to completion before the sampler inspects state.
type Chain struct {
	rng       *rand.Rand
	tree      *phylo.Tree
	prior     EventRatePrior
	settings  Settings
	coldness  *Coldness
	newParams ParamsFactory

	histories []*BranchHistory
	index     *EventIndex
	rootEvent *Event

	eventRate float64
	scale     float64

	// lastEventModified is the single pending-move revert slot: set by a
	// move, consumed by RevertLastMove, cleared by insert and delete.
	lastEventModified *Event

	acceptCount int
	rejectCount int
	generation  int
}

// New creates a chain over the given tree. The tree, prior, coldness, and
// rng are externally supplied and must outlive the chain. rootParams is the
// payload of the root event, created here and never deleted.
func New(rng *rand.Rand, tree *phylo.Tree, pr EventRatePrior, settings Settings,
	coldness *Coldness, rootParams Params, newParams ParamsFactory,
) *Chain {
	if settings.PoissonRatePrior <= 0 {
		panic(fmt.Errorf("poisson rate prior must be positive, got %g", settings.PoissonRatePrior))
	}

	c := &Chain{
		rng:       rng,
		tree:      tree,
		prior:     pr,
		settings:  settings,
		coldness:  coldness,
		newParams: newParams,
		histories: make([]*BranchHistory, tree.NodeCount()),
		index:     NewEventIndex(),
		eventRate: 1 / settings.PoissonRatePrior,
		scale:     settings.UpdateEventLocationScale * tree.MaxRootToTipLength(),
	}

	for i := range c.histories {
		c.histories[i] = &BranchHistory{}
	}

	c.rootEvent = newRootEvent(tree, rootParams)

	// The root event governs everything until events are inserted. It is
	// not part of the root's ledger (it has no map position); it enters
	// the caches directly and flows tip-ward from there.
	rootHistory := c.History(tree.Root())
	rootHistory.SetNodeEvent(c.rootEvent)
	rootHistory.SetAncestralNodeEvent(c.rootEvent)
	c.forwardSetBranchHistories(c.rootEvent)

	return c
}

// Tree returns the tree the chain runs over.
func (c *Chain) Tree() *phylo.Tree {
	return c.tree
}

// History returns the branch history of node n.
func (c *Chain) History(n *phylo.Node) *BranchHistory {
	return c.histories[n.Index]
}

// RootEvent returns the chain's root event.
func (c *Chain) RootEvent() *Event {
	return c.rootEvent
}

// Events returns all non-root events ordered by ascending map time.
func (c *Chain) Events() []*Event {
	return c.index.Sorted()
}

// EventCount returns the number of non-root events on the tree.
func (c *Chain) EventCount() int {
	return c.index.Size()
}

// TotalBranchEvents recursively counts the events recorded in the branch
// histories. Equal to EventCount whenever the ledgers are consistent.
func (c *Chain) TotalBranchEvents() int {
	return c.countBranchEvents(c.tree.Root())
}

func (c *Chain) countBranchEvents(p *phylo.Node) int {
	count := c.History(p).EventCount()

	if p.Left != nil {
		count += c.countBranchEvents(p.Left)
	}

	if p.Right != nil {
		count += c.countBranchEvents(p.Right)
	}

	return count
}

// EventRate returns the current Poisson intensity controlling the expected
// prior event count.
func (c *Chain) EventRate() float64 {
	return c.eventRate
}

// SetEventRate overwrites the event rate. Used when restoring a chain from
// a snapshot.
func (c *Chain) SetEventRate(rate float64) {
	c.eventRate = rate
}

// MoveScale returns the local-move step scale.
func (c *Chain) MoveScale() float64 {
	return c.scale
}

// LocalMoveProbability returns the probability of proposing a local move
// rather than a global one, derived from the configured odds ratio.
func (c *Chain) LocalMoveProbability() float64 {
	r := c.settings.LocalGlobalMoveRatio

	return r / (r + 1)
}

// Coldness returns the chain's view of the shared annealing factor.
func (c *Chain) Coldness() float64 {
	return c.coldness.Value()
}

// Generation returns the number of completed sampler generations.
func (c *Chain) Generation() int {
	return c.generation
}

// SetGeneration overwrites the generation counter. Used when restoring a
// chain from a snapshot.
func (c *Chain) SetGeneration(gen int) {
	c.generation = gen
}

// Step advances the generation counter by one.
func (c *Chain) Step() {
	c.generation++
}

// Accept records an accepted proposal. Acceptance is decided by the caller.
func (c *Chain) Accept() {
	c.acceptCount++
}

// Reject records a rejected proposal.
func (c *Chain) Reject() {
	c.rejectCount++
}

// Counters returns the accept and reject counts.
func (c *Chain) Counters() (accepts, rejects int) {
	return c.acceptCount, c.rejectCount
}

// SetCounters overwrites the accept/reject counters. Used when restoring a
// chain from a snapshot.
func (c *Chain) SetCounters(accepts, rejects int) {
	c.acceptCount = accepts
	c.rejectCount = rejects
}

// AcceptProbability converts a log posterior ratio into a Metropolis
// acceptance probability, annealed by the shared coldness factor.
func (c *Chain) AcceptProbability(logRatio float64) float64 {
	annealed := c.coldness.Value() * logRatio
	if annealed >= 0 {
		return 1
	}

	return math.Exp(annealed)
}

// AcceptMetropolis draws the accept/reject decision for a log posterior
// ratio. Counters are not touched; the caller records the outcome.
func (c *Chain) AcceptMetropolis(logRatio float64) bool {
	return c.rng.Float64() < c.AcceptProbability(logRatio)
}

// UpdateEventRate performs one Metropolis step on the event-rate
// hyperparameter: a multiplicative log-scale proposal accepted against the
// Poisson-rate prior. Records its own accept/reject outcome.
func (c *Chain) UpdateEventRate() {
	oldRate := c.eventRate

	cterm := math.Exp(c.settings.UpdateEventRateScale * (c.rng.Float64() - 0.5))
	proposed := cterm * oldRate

	logPriorRatio := c.prior.LogDensity(proposed) - c.prior.LogDensity(oldRate)
	logProposalRatio := math.Log(cterm)

	if c.AcceptMetropolis(logPriorRatio + logProposalRatio) {
		c.eventRate = proposed
		c.Accept()
	} else {
		c.Reject()
	}
}
