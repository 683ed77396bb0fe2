package zencat

import (
	"context"
	"fmt"
	"net/url"
)

// Пути ресурсов бэкенда (завершающий слэш — контракт API).
const (
	PathCommunities     = "/communities/"
	PathServices        = "/services/"
	PathProfessionals   = "/professionals/"
	PathLocals          = "/locals/"
	PathMembershipPlans = "/membership-plans/"
	PathSessions        = "/sessions/"
	PathReservations    = "/reservations/"
	PathUsers           = "/users/"
)

// ListEnvelope — единый конверт списочных ответов бэкенда.
// Исторически эндпойнты отдавали кто голый массив, кто {data:...},
// кто {<plural>:...}; здесь форма нормализована к одной.
type ListEnvelope[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// Resource — типизированный CRUD-доступ к одному ресурсу бэкенда.
// Конверты ошибок и refresh-на-401 наследуются от клиента.
type Resource[T any] struct {
	c    *Client
	base string // путь коллекции с завершающим слэшем, например "/communities/"
}

// NewResource создаёт сервис ресурса поверх клиента.
func NewResource[T any](c *Client, base string) Resource[T] {
	return Resource[T]{c: c, base: base}
}

// List возвращает коллекцию; query прокидывается бэкенду как есть
// (фильтры и пагинация — его зона ответственности).
func (r Resource[T]) List(ctx context.Context, query url.Values) (ListEnvelope[T], error) {
	const op = "zencat.Resource.List"

	path := r.base
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var env ListEnvelope[T]
	if err := r.c.Get(ctx, path, &env); err != nil {
		return ListEnvelope[T]{}, fmt.Errorf("%s: %w", op, err)
	}

	return env, nil
}

// Get возвращает один объект по id.
func (r Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	const op = "zencat.Resource.Get"

	var out T
	if err := r.c.Get(ctx, r.item(id), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Create создаёт объект и возвращает его серверное представление.
func (r Resource[T]) Create(ctx context.Context, in any) (*T, error) {
	const op = "zencat.Resource.Create"

	var out T
	if err := r.c.Post(ctx, r.base, in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Update частично обновляет объект (PATCH) и возвращает новую версию.
func (r Resource[T]) Update(ctx context.Context, id string, in any) (*T, error) {
	const op = "zencat.Resource.Update"

	var out T
	if err := r.c.Patch(ctx, r.item(id), in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Delete удаляет объект по id.
func (r Resource[T]) Delete(ctx context.Context, id string) error {
	const op = "zencat.Resource.Delete"

	if err := r.c.Delete(ctx, r.item(id), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// BulkCreate создаёт пачку объектов одним вызовом.
func (r Resource[T]) BulkCreate(ctx context.Context, in any) (ListEnvelope[T], error) {
	const op = "zencat.Resource.BulkCreate"

	var env ListEnvelope[T]
	if err := r.c.Post(ctx, r.base+"bulk-create/", in, &env); err != nil {
		return ListEnvelope[T]{}, fmt.Errorf("%s: %w", op, err)
	}

	return env, nil
}

// BulkDelete удаляет пачку объектов по id.
func (r Resource[T]) BulkDelete(ctx context.Context, ids []string) error {
	const op = "zencat.Resource.BulkDelete"

	if err := r.c.Delete(ctx, r.base+"bulk-delete/", bulkDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r Resource[T]) item(id string) string {
	return r.base + url.PathEscape(id) + "/"
}
