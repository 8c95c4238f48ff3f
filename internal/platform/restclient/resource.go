package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/innkeeper/backoffice/internal/listing"
)

type resourceOptions struct {
	envelope     string
	updateByPath bool
	deleteByPath bool
}

// ResourceOption customises how a Resource addresses its endpoint.
type ResourceOption func(*resourceOptions)

// Envelope names an extra key that may wrap the collection, e.g. "assets".
func Envelope(key string) ResourceOption {
	return func(o *resourceOptions) { o.envelope = key }
}

// UpdateByPath sends updates to /{path}/{id} instead of /{path}.
func UpdateByPath() ResourceOption {
	return func(o *resourceOptions) { o.updateByPath = true }
}

// DeleteByPath sends deletes to /{path}/{id} instead of a JSON body.
func DeleteByPath() ResourceOption {
	return func(o *resourceOptions) { o.deleteByPath = true }
}

// Resource is a REST collection of T. It implements listing.Source.
type Resource[T listing.Entity] struct {
	client *Client
	path   string
	opts   resourceOptions
}

var _ listing.Source[listing.Entity] = (*Resource[listing.Entity])(nil)

// NewResource binds a collection endpoint such as "/assets".
func NewResource[T listing.Entity](client *Client, path string, opts ...ResourceOption) *Resource[T] {
	r := &Resource[T]{client: client, path: path}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

// Path returns the collection endpoint.
func (r *Resource[T]) Path() string {
	return r.path
}

// List fetches the collection. Bare arrays and arrays wrapped in "items",
// "data" or the configured envelope key are accepted.
func (r *Resource[T]) List(ctx context.Context, params url.Values) ([]T, error) {
	status, payload, err := r.client.do(ctx, http.MethodGet, r.path, params, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[T](payload, r.opts.envelope)
	if err != nil {
		return nil, listing.MalformedError(status, err)
	}
	return items, nil
}

// Create posts a new entity and returns the server's copy. The response must
// carry the entity with the id the server assigned.
func (r *Resource[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	status, payload, err := r.client.do(ctx, http.MethodPost, r.path, nil, item)
	if err != nil {
		return zero, err
	}
	if isEmptyBody(payload) {
		return zero, listing.MalformedError(status, errNoEntity)
	}
	created, err := decodeOne(status, payload, item)
	if err != nil {
		return zero, err
	}
	if created.EntityID() <= 0 {
		return zero, listing.MalformedError(status, errNoEntity)
	}
	return created, nil
}

// Update replaces an entity. An empty 2xx body keeps the submitted value.
func (r *Resource[T]) Update(ctx context.Context, item T) (T, error) {
	path := r.path
	if r.opts.updateByPath {
		path = r.itemPath(item.EntityID())
	}
	status, payload, err := r.client.do(ctx, http.MethodPut, path, nil, item)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne(status, payload, item)
}

// Delete removes the entity with the given id.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	if r.opts.deleteByPath {
		_, _, err := r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
		return err
	}
	_, _, err := r.client.do(ctx, http.MethodDelete, r.path, nil, map[string]int64{"id": id})
	return err
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

func decodeList[T any](payload []byte, envelope string) ([]T, error) {
	trimmed := bytes.TrimSpace(payload)
	switch {
	case len(trimmed) == 0:
		return nil, fmt.Errorf("empty body")
	case bytes.Equal(trimmed, []byte("null")):
		return []T{}, nil
	case trimmed[0] == '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	case trimmed[0] == '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		keys := []string{"items", "data"}
		if envelope != "" {
			keys = append([]string{envelope}, keys...)
		}
		for _, key := range keys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || raw[0] != '[' {
				continue
			}
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, err
			}
			return items, nil
		}
		return nil, errNotArray
	default:
		return nil, errNotArray
	}
}

// decodeOne reads a single entity, unwrapping {"item":{}} or {"data":{}}.
func decodeOne[T any](status int, payload []byte, submitted T) (T, error) {
	if isEmptyBody(payload) {
		return submitted, nil
	}
	trimmed := bytes.TrimSpace(payload)
	var zero T
	if trimmed[0] != '{' {
		return zero, listing.MalformedError(status, fmt.Errorf("entity is not a JSON object"))
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return zero, listing.MalformedError(status, err)
	}
	if _, hasID := wrapper["id"]; !hasID {
		for _, key := range []string{"item", "data"} {
			if raw, ok := wrapper[key]; ok && len(bytes.TrimSpace(raw)) > 0 && bytes.TrimSpace(raw)[0] == '{' {
				trimmed = raw
				break
			}
		}
	}
	var out T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return zero, listing.MalformedError(status, err)
	}
	return out, nil
}

func isEmptyBody(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
