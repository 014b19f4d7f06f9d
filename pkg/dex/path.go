package dex

import (
	"context"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
)

// SelectPath picks the trade route between two assets, preferring the fewest
// hops. Decision order:
//
//  1. direct pool exists            -> [from, to]
//  2. both legs via wrapped native  -> [from, wnative, to]
//  3. bootstrap the direct pool     -> [from, to]
//  4. bootstrap the missing leg(s)  -> [from, wnative, to]
//
// Deploying a pool costs gas, so creation is only attempted once existing
// liquidity is ruled out. When direct creation fails the two-hop fallback is
// still tried: a pair the factory rejects can often still route through the
// wrapped native asset. Only when that fails too is ErrNoRoute returned.
func (c *Client) SelectPath(ctx context.Context, from, to common.Address) ([]common.Address, error) {
	direct, diag := c.PoolExists(ctx, from, to)
	if diag != nil {
		log.Printf("pool probe %s/%s inconclusive: %v", from.Hex(), to.Hex(), diag)
	}
	if direct {
		return []common.Address{from, to}, nil
	}

	intermediary := c.cfg.WrappedNative
	// A hop through the intermediary only makes sense when neither endpoint
	// is the intermediary itself.
	canHop := from != intermediary && to != intermediary

	var hopA, hopB bool
	if canHop {
		hopA, _ = c.PoolExists(ctx, from, intermediary)
		hopB, _ = c.PoolExists(ctx, intermediary, to)
		if hopA && hopB {
			return []common.Address{from, intermediary, to}, nil
		}
	}

	// No existing liquidity reachable; bootstrap the direct pool first.
	if _, err := c.EnsurePool(ctx, from, to); err == nil {
		return []common.Address{from, to}, nil
	} else {
		log.Printf("direct pool bootstrap %s/%s failed: %v", from.Hex(), to.Hex(), err)
	}

	if !canHop {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoRoute, from.Hex(), to.Hex())
	}

	// Fall back to creating whichever hop legs are missing.
	if !hopA {
		if _, err := c.EnsurePool(ctx, from, intermediary); err != nil {
			return nil, fmt.Errorf("%w: %s -> %s: %v", ErrNoRoute, from.Hex(), to.Hex(), err)
		}
	}
	if !hopB {
		if _, err := c.EnsurePool(ctx, intermediary, to); err != nil {
			return nil, fmt.Errorf("%w: %s -> %s: %v", ErrNoRoute, from.Hex(), to.Hex(), err)
		}
	}
	return []common.Address{from, intermediary, to}, nil
}
