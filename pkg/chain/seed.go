package chain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedEventData is returned for any malformed record in an event
// data file. Seed-file problems are unrecoverable setup errors, not
// chain-runtime conditions.
var ErrMalformedEventData = errors.New("malformed event data")

// naToken marks a missing second species in an event data record, denoting
// a single-tip event rather than an MRCA-defined internal node.
const naToken = "NA"

// ParamsParser decodes the model-specific parameter block of an event data
// record from the whitespace-separated fields following the event time.
type ParamsParser func(fields []string) (Params, error)

// InitializeFromEventData seeds the chain from a previously saved event
// configuration. Each record holds two species tokens (the second may be
// NA), an event time measured from the root, and a model-specific parameter
// block handed to parse. A record resolving to the tree root initializes
// the root event's parameters in place instead of creating a new event.
// Returns the number of records read.
func (c *Chain) InitializeFromEventData(r io.Reader, parse ParamsParser) (int, error) {
	const fixedFields = 3 // species1, species2, event time

	scanner := bufio.NewScanner(r)

	count := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if len(fields) < fixedFields {
			return count, fmt.Errorf("%w: line %d has %d fields, want at least %d",
				ErrMalformedEventData, lineNo, len(fields), fixedFields)
		}

		species1, species2 := fields[0], fields[1]

		eTime, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return count, fmt.Errorf("%w: line %d: bad event time %q", ErrMalformedEventData, lineNo, fields[2])
		}

		params, err := parse(fields[fixedFields:])
		if err != nil {
			return count, fmt.Errorf("line %d: read model parameters: %w", lineNo, err)
		}

		err = c.seedEvent(species1, species2, eTime, params)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}

		count++
	}

	err := scanner.Err()
	if err != nil {
		return count, fmt.Errorf("read event data: %w", err)
	}

	return count, nil
}

func (c *Chain) seedEvent(species1, species2 string, eTime float64, params Params) error {
	node := c.tree.Root()

	switch {
	case species1 != naToken && species2 != naToken:
		mrca, err := c.tree.MRCA(species1, species2)
		if err != nil {
			return err
		}

		node = mrca
	case species1 != naToken && species2 == naToken:
		tip, err := c.tree.NodeByName(species1)
		if err != nil {
			return err
		}

		node = tip
	default:
		return fmt.Errorf("%w: either both species are NA or the second species is NA", ErrMalformedEventData)
	}

	if node == c.tree.Root() {
		// The root event already exists; the record only carries its
		// parameters.
		c.rootEvent.SetParams(params)

		return nil
	}

	// Convert event time from time-since-root to an offset inside the
	// branch's map interval.
	mapTime := node.MapStart + (node.Time - eTime)

	if !node.ContainsMapPosition(mapTime) {
		return fmt.Errorf("%w: event time %g does not fall on the branch of its node (map position %g outside [%g, %g))",
			ErrMalformedEventData, eTime, mapTime, node.MapStart, node.MapEnd)
	}

	c.AddEventAt(mapTime, params)

	return nil
}
