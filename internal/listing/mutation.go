package listing

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// Intent is the first step of a delete. Nothing changes until Remove is
// called with its token.
type Intent struct {
	Token string `json:"confirm_token"`
	ID    int64  `json:"id"`
}

var errCreatedWithoutID = errors.New("created entity has no id")

// Phase reports the mutation phase of an entity.
func (c *Controller[T]) Phase(id int64) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phases[id]
}

// Creating reports how many creates are awaiting the server.
func (c *Controller[T]) Creating() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creating
}

// Create validates input and submits it. In optimistic mode a provisional
// entity with a negative id is shown until the server answers.
func (c *Controller[T]) Create(ctx context.Context, input T) (T, error) {
	var zero T
	if fields := c.validate(input); len(fields) > 0 {
		c.observeMutation(OpCreate, OutcomeInvalid)
		return zero, ValidationError(fields)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, closedError()
	}
	c.creating++
	optimistic := c.cfg.CreateMode == Optimistic
	var tempID int64
	if optimistic {
		c.nextTemp--
		tempID = c.nextTemp
		c.items = append(c.items, c.cfg.WithID(input, tempID))
		c.phases[tempID] = PhaseSubmitting
		c.clampLocked()
	}
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		c.creating--
		delete(c.phases, tempID)
		c.mu.Unlock()
		c.notify()
	}()

	created, err := c.cfg.Source.Create(ctx, input)
	if err == nil && created.EntityID() <= 0 {
		// Without a server id the row could not be reconciled with later loads.
		err = MalformedError(0, errCreatedWithoutID)
	}

	c.mu.Lock()
	c.issued++
	at := -1
	if optimistic {
		at = indexOf(c.items, tempID)
	}
	if err != nil {
		if at >= 0 {
			c.items = slices.Delete(c.items, at, at+1)
		}
		c.clampLocked()
		c.mu.Unlock()
		return zero, c.mutationFailed(OpCreate, tempID, optimistic, err)
	}
	c.items = settle(c.items, at, created)
	c.clampLocked()
	c.mu.Unlock()

	c.observeMutation(OpCreate, OutcomeSuccess)
	return created, nil
}

// Update applies patch to the entity with the given id and submits the
// result. In optimistic mode the new value is shown immediately and the
// previous value restored if the server rejects it.
func (c *Controller[T]) Update(ctx context.Context, id int64, patch Patch[T]) (T, error) {
	var zero T
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, closedError()
	}
	idx := indexOf(c.items, id)
	if idx < 0 {
		c.mu.Unlock()
		return zero, notFoundError(c.cfg.Resource, id)
	}
	if c.phases[id] != PhaseIdle {
		c.mu.Unlock()
		c.observeMutation(OpUpdate, OutcomeBlocked)
		return zero, busyError()
	}
	original := c.items[idx]
	c.phases[id] = PhaseValidating
	c.mu.Unlock()
	defer c.release(id)

	next, err := patch(original)
	if err != nil {
		c.observeMutation(OpUpdate, OutcomeInvalid)
		if lerr := classify(err); lerr.Kind == KindValidation {
			return zero, lerr
		}
		return zero, ValidationError(map[string]string{"_": err.Error()})
	}
	fields := c.validate(next)
	if next.EntityID() != id {
		fields = MergeFields(map[string]string{"id": "cannot be changed"}, fields)
	}
	if len(fields) > 0 {
		c.observeMutation(OpUpdate, OutcomeInvalid)
		return zero, ValidationError(fields)
	}

	optimistic := c.cfg.UpdateMode == Optimistic
	c.mu.Lock()
	c.phases[id] = PhaseSubmitting
	if optimistic {
		if i := indexOf(c.items, id); i >= 0 {
			c.items[i] = next
			c.clampLocked()
		}
	}
	c.mu.Unlock()
	c.notify()

	saved, err := c.cfg.Source.Update(ctx, next)

	c.mu.Lock()
	c.issued++
	if err != nil {
		if optimistic {
			if i := indexOf(c.items, id); i >= 0 {
				c.items[i] = original
			}
		}
		c.clampLocked()
		c.mu.Unlock()
		return zero, c.mutationFailed(OpUpdate, id, optimistic, err)
	}
	if saved.EntityID() != id {
		// The server answered for another record; keep what was submitted.
		saved = next
	}
	c.items = settle(c.items, indexOf(c.items, id), saved)
	c.clampLocked()
	c.mu.Unlock()

	c.observeMutation(OpUpdate, OutcomeSuccess)
	return saved, nil
}

// RequestRemoval is the first step of a delete. It checks the dependency
// guard and hands out a confirmation token without touching the collection.
func (c *Controller[T]) RequestRemoval(id int64) (Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Intent{}, closedError()
	}
	idx := indexOf(c.items, id)
	if idx < 0 {
		return Intent{}, notFoundError(c.cfg.Resource, id)
	}
	if c.phases[id] != PhaseIdle {
		return Intent{}, busyError()
	}
	if err := c.guardLocked(c.items[idx]); err != nil {
		return Intent{}, err
	}
	intent := Intent{Token: uuid.NewString(), ID: id}
	c.intents[intent.Token] = id
	return intent, nil
}

// CancelRemoval drops a pending confirmation.
func (c *Controller[T]) CancelRemoval(token string) {
	c.mu.Lock()
	delete(c.intents, token)
	c.mu.Unlock()
}

// Remove performs the confirmed delete of id. The token must have been
// issued for that id. A failed optimistic delete puts the entity back at its
// original position.
func (c *Controller[T]) Remove(ctx context.Context, id int64, token string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return closedError()
	}
	if target, ok := c.intents[token]; !ok || target != id {
		c.mu.Unlock()
		c.observeMutation(OpDelete, OutcomeBlocked)
		return confirmationError()
	}
	delete(c.intents, token)
	idx := indexOf(c.items, id)
	if idx < 0 {
		c.mu.Unlock()
		return notFoundError(c.cfg.Resource, id)
	}
	if c.phases[id] != PhaseIdle {
		c.mu.Unlock()
		c.observeMutation(OpDelete, OutcomeBlocked)
		return busyError()
	}
	removed := c.items[idx]
	if err := c.guardLocked(removed); err != nil {
		c.mu.Unlock()
		return err
	}
	c.phases[id] = PhaseSubmitting
	optimistic := c.cfg.DeleteMode == Optimistic
	if optimistic {
		c.items = slices.Delete(c.items, idx, idx+1)
		c.clampLocked()
	}
	c.mu.Unlock()
	c.notify()
	defer c.release(id)

	err := c.cfg.Source.Delete(ctx, id)

	c.mu.Lock()
	c.issued++
	if err != nil {
		if optimistic && indexOf(c.items, id) < 0 {
			c.items = slices.Insert(c.items, min(idx, len(c.items)), removed)
		}
		c.clampLocked()
		c.mu.Unlock()
		return c.mutationFailed(OpDelete, id, optimistic, err)
	}
	if i := indexOf(c.items, id); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
	for t, target := range c.intents {
		if target == id {
			delete(c.intents, t)
		}
	}
	c.clampLocked()
	c.mu.Unlock()

	c.observeMutation(OpDelete, OutcomeSuccess)
	return nil
}

func (c *Controller[T]) guardLocked(item T) error {
	if c.cfg.CanDelete == nil {
		return nil
	}
	if err := c.cfg.CanDelete(item); err != nil {
		c.observeMutation(OpDelete, OutcomeBlocked)
		return DependencyError(err.Error())
	}
	return nil
}

// release clears the in-flight phase whatever the outcome.
func (c *Controller[T]) release(id int64) {
	c.mu.Lock()
	delete(c.phases, id)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller[T]) mutationFailed(op string, id int64, rolledBack bool, err error) *Error {
	lerr := classify(err)
	outcome := OutcomeFailed
	if rolledBack {
		outcome = OutcomeRolledBack
	}
	c.logger.Warn("list mutation failed",
		slog.String("op", op),
		slog.Int64("id", id),
		slog.String("kind", lerr.Kind.String()),
		slog.Bool("rolled_back", rolledBack),
		slog.Any("error", lerr))
	c.observeMutation(op, outcome)
	return lerr
}

// settle puts v at index at (appending when at < 0) and drops every other
// element that shares its id.
func settle[T Entity](items []T, at int, v T) []T {
	id := v.EntityID()
	out := make([]T, 0, len(items)+1)
	placed := false
	for i, item := range items {
		switch {
		case i == at:
			if !placed {
				out = append(out, v)
				placed = true
			}
		case item.EntityID() == id:
			if at < 0 && !placed {
				out = append(out, v)
				placed = true
			}
		default:
			out = append(out, item)
		}
	}
	if !placed {
		out = append(out, v)
	}
	return out
}
