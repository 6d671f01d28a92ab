package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ledgerflow/internal/access"
	"github.com/roach88/ledgerflow/internal/ir"
	"github.com/roach88/ledgerflow/internal/store"
)

// run is the state shared by every app call of one bundle.
type run struct {
	tx          *store.Tx
	bundle      ir.Bundle
	settings    Settings
	instance    *Instance
	dirty       bool
	consumed    map[int]bool
	budget      *Budget
	logs        []string
	settlements []ir.Settlement
	host        Host
	logger      *slog.Logger
}

// Context is handed to App.Execute for one app call. It exposes the caller,
// the bundle, the record store and the settlement channel, and maps every
// failure onto an engine *Error.
//
// A Context is only valid during the Execute call it was created for.
type Context struct {
	ctx    context.Context
	run    *run
	index  int
	op     ir.Op
	issued bool
}

// Context returns the request context.
func (c *Context) Context() context.Context { return c.ctx }

// Caller returns the authenticated sender of the app call.
func (c *Context) Caller() ir.Address { return c.op.Sender }

// Opcode returns the opcode of the app call.
func (c *Context) Opcode() string { return c.op.Opcode }

// Index returns the position of the app call in the bundle.
func (c *Context) Index() int { return c.index }

// Now returns the host's block time for the bundle, in seconds.
func (c *Context) Now() int64 { return c.run.bundle.Timestamp }

// App returns the application's own address.
func (c *Context) App() ir.Address { return c.run.settings.App }

// Admin returns the current administrator.
func (c *Context) Admin() ir.Address { return c.run.instance.Admin }

// AssetID returns the asset payments and settlements move in.
func (c *Context) AssetID() uint64 { return c.run.instance.AssetID }

// Instance returns a copy of the global configuration record.
func (c *Context) Instance() Instance { return *c.run.instance }

// MaxListing returns the cap applied to index listings.
func (c *Context) MaxListing() int {
	if c.run.settings.MaxListing > 0 {
		return c.run.settings.MaxListing
	}
	return DefaultMaxListing
}

// UpdateInstance applies fn to the global configuration record. The record
// is written once, when the bundle finishes.
func (c *Context) UpdateInstance(fn func(*Instance) error) error {
	next := *c.run.instance
	if err := fn(&next); err != nil {
		return err
	}
	*c.run.instance = next
	c.run.dirty = true
	return nil
}

// Authorize fails with PERMISSION_DENIED unless the caller holds role for a
// record with the given parties.
func (c *Context) Authorize(parties access.Parties, role access.Role) error {
	if !access.Authorize(c.Admin(), parties, c.Caller(), role) {
		return Errorf(CodePermissionDenied, "caller %s is not %s", c.Caller(), role)
	}
	return nil
}

// RequireAdmin fails with PERMISSION_DENIED unless the caller is the admin.
func (c *Context) RequireAdmin() error {
	return c.Authorize(access.Parties{}, access.Admin)
}

// Create stores a new record. Fails with ALREADY_EXISTS if key is present.
func (c *Context) Create(key string, data []byte) error {
	if err := c.run.budget.Charge(1); err != nil {
		return err
	}
	return fromStorage(c.run.tx.Create(c.ctx, key, data), key)
}

// Read returns the record under key; found is false if it is absent.
func (c *Context) Read(key string) (data []byte, found bool, err error) {
	if err := c.run.budget.Charge(1); err != nil {
		return nil, false, err
	}
	data, found, err = c.run.tx.Read(c.ctx, key)
	return data, found, fromStorage(err, key)
}

// Get returns the record under key. Fails with NOT_FOUND if absent.
func (c *Context) Get(key string) ([]byte, error) {
	data, found, err := c.Read(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, Errorf(CodeNotFound, "no record %q", key)
	}
	return data, nil
}

// Update replaces the record under key. Fails with NOT_FOUND if absent.
func (c *Context) Update(key string, data []byte) error {
	if err := c.run.budget.Charge(1); err != nil {
		return err
	}
	return fromStorage(c.run.tx.Update(c.ctx, key, data), key)
}

// Delete removes the record under key. Fails with NOT_FOUND if absent.
func (c *Context) Delete(key string) error {
	if err := c.run.budget.Charge(1); err != nil {
		return err
	}
	return fromStorage(c.run.tx.Delete(c.ctx, key), key)
}

// IndexAdd appends id to owner's listing of kind.
func (c *Context) IndexAdd(owner ir.Address, kind, id string) error {
	if err := c.run.budget.Charge(1); err != nil {
		return err
	}
	return fromStorage(c.run.tx.IndexAdd(c.ctx, string(owner), kind, id), indexKey(owner, kind, id))
}

// IndexRemove drops id from owner's listing of kind.
func (c *Context) IndexRemove(owner ir.Address, kind, id string) error {
	if err := c.run.budget.Charge(1); err != nil {
		return err
	}
	return fromStorage(c.run.tx.IndexRemove(c.ctx, string(owner), kind, id), indexKey(owner, kind, id))
}

// IndexList returns owner's ids of kind in insertion order, capped at
// MaxListing.
func (c *Context) IndexList(owner ir.Address, kind string) ([]string, error) {
	if err := c.run.budget.Charge(1); err != nil {
		return nil, err
	}
	ids, err := c.run.tx.IndexList(c.ctx, string(owner), kind, c.MaxListing())
	return ids, fromStorage(err, indexKey(owner, kind, "*"))
}

// IndexCount returns the number of owner's ids of kind.
func (c *Context) IndexCount(owner ir.Address, kind string) (int, error) {
	if err := c.run.budget.Charge(1); err != nil {
		return 0, err
	}
	n, err := c.run.tx.IndexCount(c.ctx, string(owner), kind)
	return n, fromStorage(err, indexKey(owner, kind, "*"))
}

// Log appends a report line to the receipt.
func (c *Context) Log(line string) {
	c.run.logs = append(c.run.logs, line)
}

// Logf appends a formatted report line to the receipt.
func (c *Context) Logf(format string, args ...any) {
	c.Log(fmt.Sprintf(format, args...))
}

// NextID advances the global id counter and returns the new value.
func (c *Context) NextID() (uint64, error) {
	var id uint64
	err := c.UpdateInstance(func(in *Instance) error {
		next, err := Add(in.Counter, 1, "id counter")
		if err != nil {
			return err
		}
		in.Counter = next
		id = next
		return nil
	})
	return id, err
}

func indexKey(owner ir.Address, kind, id string) string {
	return fmt.Sprintf("index(%s/%s/%s)", owner, kind, id)
}
