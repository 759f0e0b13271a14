package table

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/Kyz7/console/internal/apiclient"
	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/auth"
	"github.com/Kyz7/console/internal/listfetch"
	"github.com/Kyz7/console/internal/resource"
	"github.com/Kyz7/console/internal/response"
	"github.com/Kyz7/console/internal/role"
	"github.com/Kyz7/console/internal/session"
	"github.com/Kyz7/console/internal/tablequery"
	"github.com/Kyz7/console/internal/viewstate"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Deleter interface {
	Delete(ctx context.Context, ts oauth2.TokenSource, path, id string) (string, error)
}

type Handler struct {
	sessions *session.Manager
	deleter  Deleter
	audit    audit.Recorder
	log      *zap.Logger
	settle   time.Duration
	policy   *bluemonday.Policy
	validate *validator.Validate
}

func NewHandler(sessions *session.Manager, deleter Deleter, recorder audit.Recorder, settle time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		deleter:  deleter,
		audit:    recorder,
		log:      log,
		settle:   settle,
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type View struct {
	Resource string           `json:"resource"`
	State    *viewstate.State `json:"state"`
	Query    string           `json:"query"`
	Items    []map[string]any `json:"items"`
	Status   listfetch.Status `json:"status"`
	Error    string           `json:"error,omitempty"`
}

func (h *Handler) table(c *fiber.Ctx) (*listfetch.Orchestrator, error) {
	def, ok := resource.Lookup(c.Params("resource"))
	if !ok {
		return nil, response.NotFound(c, "Table")
	}

	w := h.sessions.Acquire(auth.Subject(c), apiclient.BearerToken(auth.Token(c)))
	o, ok := w.Table(def.Name)
	if !ok {
		return nil, response.NotFound(c, "Table")
	}
	return o, nil
}

func (h *Handler) wait(c *fiber.Ctx, o *listfetch.Orchestrator) {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.settle)
	defer cancel()
	if err := o.Wait(ctx); err != nil {
		h.log.Debug("answering before the table settled",
			zap.String("resource", string(o.Definition().Name)), zap.Error(err))
	}
}

func (h *Handler) render(c *fiber.Ctx, o *listfetch.Orchestrator, message string) error {
	def := o.Definition()
	st := o.Store().Snapshot()
	slice := o.Slice()

	query := tablequery.BuildListQuery(o.ExtraFilters(), st.Pagination.PageIndex, st.Pagination.PageSize,
		st.DebouncedFilter, st.Sorting, def.Columns)

	items := slice.Items
	if def.RoleField != "" {
		items = annotate(items, def.RoleField, auth.CurrentRole(c))
	}

	view := View{
		Resource: string(def.Name),
		State:    st,
		Query:    query.Encode(),
		Items:    items,
		Status:   slice.Status,
		Error:    slice.Error,
	}
	meta := &response.Meta{
		Page:       slice.Pagination.Page,
		Limit:      slice.Pagination.PerPage,
		Total:      slice.Pagination.Total,
		TotalPages: slice.Pagination.TotalPages,
	}
	return response.SuccessWithMeta(c, view, meta, message)
}

// annotate copies role-bearing rows adding whether the caller may manage them.
func annotate(items []map[string]any, field string, current role.Role) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		row := make(map[string]any, len(item)+1)
		for k, v := range item {
			row[k] = v
		}
		row["can_manage"] = role.CanManage(current, rowRole(item, field), role.ManageOptions{})
		out[i] = row
	}
	return out
}

func rowRole(item map[string]any, field string) role.Role {
	raw, _ := item[field].(string)
	return role.ParseOr(raw, role.None)
}

func findRow(items []map[string]any, id string) (map[string]any, bool) {
	for _, item := range items {
		if v, ok := item["id"]; ok && fmt.Sprint(v) == id {
			return item, true
		}
	}
	return nil, false
}

func queryValues(c *fiber.Ctx) url.Values {
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return url.Values{}
	}
	return values
}

func GetTableHandler(h *Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := h.table(c)
		if o == nil {
			return err
		}

		values := queryValues(c)
		def := o.Definition()
		view := tablequery.DecodeView(values, def.Columns, def.DefaultPageSize)

		o.Navigate(view, values)

		h.wait(c, o)
		return h.render(c, o, "")
	}
}

type paginationPatch struct {
	PageIndex *int `json:"page_index" validate:"omitempty,min=0"`
	PageSize  *int `json:"page_size" validate:"omitempty,min=1,max=100"`
}

type sortPatch struct {
	ID   string `json:"id" validate:"required,max=64"`
	Desc bool   `json:"desc"`
}

type statePatch struct {
	Pagination       *paginationPatch  `json:"pagination"`
	Sorting          *[]sortPatch      `json:"sorting" validate:"omitempty,max=5,dive"`
	ColumnVisibility map[string]bool   `json:"column_visibility"`
	GlobalFilter     *string           `json:"global_filter" validate:"omitempty,max=200"`
	Filters          map[string]string `json:"filters"`
}

func PatchStateHandler(h *Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := h.table(c)
		if o == nil {
			return err
		}

		var body statePatch
		if err := c.BodyParser(&body); err != nil {
			return response.BadRequest(c, "Invalid request body", err.Error())
		}
		if err := h.validate.Struct(body); err != nil {
			return response.ValidationError(c, err.Error())
		}

		store := o.Store()

		if body.Pagination != nil {
			patch := body.Pagination
			store.SetPagination(func(p viewstate.Pagination) viewstate.Pagination {
				if patch.PageSize != nil && *patch.PageSize != p.PageSize {
					p.PageSize = *patch.PageSize
					p.PageIndex = 0
				}
				if patch.PageIndex != nil {
					p.PageIndex = *patch.PageIndex
				}
				return p
			})
		}

		if body.Sorting != nil {
			sorting := make(tablequery.SortingState, 0, len(*body.Sorting))
			for _, s := range *body.Sorting {
				sorting = append(sorting, tablequery.ColumnSort{ID: s.ID, Desc: s.Desc})
			}
			store.SetSorting(viewstate.Value(sorting))
		}

		if body.ColumnVisibility != nil {
			store.SetColumnVisibility(func(v viewstate.Visibility) viewstate.Visibility {
				for col, visible := range body.ColumnVisibility {
					v[col] = visible
				}
				return v
			})
		}

		if body.GlobalFilter != nil {
			filter := html.UnescapeString(h.policy.Sanitize(*body.GlobalFilter))
			store.SetGlobalFilter(viewstate.Value(filter))
		}

		if body.Filters != nil {
			values := url.Values{}
			for k, v := range body.Filters {
				values.Set(k, v)
			}
			o.SetExtraFilters(values)
		}

		h.wait(c, o)
		return h.render(c, o, "Table state updated")
	}
}

type deleteTargetBody struct {
	ID string `json:"id" validate:"required,max=100"`
}

// authorizeDelete checks the caller may delete id. Role-bearing rows are
// checked against the row owner's role; other records need staff or above.
func (h *Handler) authorizeDelete(c *fiber.Ctx, o *listfetch.Orchestrator, id string) error {
	def := o.Definition()
	current := auth.CurrentRole(c)

	if !role.AtLeast(current, role.Staff) {
		return response.Forbidden(c, "You don't have permission to delete records")
	}
	if def.RoleField == "" {
		return nil
	}

	row, ok := findRow(o.Slice().Items, id)
	if !ok {
		return response.NotFound(c, "Record")
	}
	if !role.CanManage(current, rowRole(row, def.RoleField), role.ManageOptions{}) {
		return response.Forbidden(c, "You cannot manage a user with this role")
	}
	return nil
}

func SetDeleteTargetHandler(h *Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := h.table(c)
		if o == nil {
			return err
		}

		var body deleteTargetBody
		if err := c.BodyParser(&body); err != nil {
			return response.BadRequest(c, "Invalid request body", err.Error())
		}
		if err := h.validate.Struct(body); err != nil {
			return response.ValidationError(c, err.Error())
		}

		if err := h.authorizeDelete(c, o, body.ID); err != nil {
			return err
		}

		o.Store().SetDeleteTarget(body.ID)
		return h.render(c, o, "Confirm deletion")
	}
}

func ClearDeleteTargetHandler(h *Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := h.table(c)
		if o == nil {
			return err
		}

		o.Store().SetDeleteTarget("")
		return h.render(c, o, "")
	}
}

func ConfirmDeleteHandler(h *Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := h.table(c)
		if o == nil {
			return err
		}

		def := o.Definition()
		id := o.Store().Snapshot().DeleteTarget
		if id == "" {
			return response.Conflict(c, "No record is awaiting deletion")
		}

		entry := audit.Entry{
			ActorSubject: auth.Subject(c),
			ActorRole:    auth.CurrentRole(c).String(),
			Resource:     string(def.Name),
			TargetID:     id,
			Action:       audit.ActionDelete,
		}

		if err := h.authorizeDelete(c, o, id); err != nil {
			entry.Outcome = audit.OutcomeDenied
			h.record(c, entry)
			return err
		}

		ctx := apiclient.WithRequestID(c.UserContext(), requestID(c))
		msg, err := h.deleter.Delete(ctx, apiclient.BearerToken(auth.Token(c)), def.Path, id)
		if err != nil {
			entry.Outcome = audit.OutcomeFailed
			h.record(c, entry.WithDetails(map[string]any{"error": err.Error()}))
			return response.Upstream(c, err)
		}

		entry.Outcome = audit.OutcomeSucceeded
		h.record(c, entry)

		o.Store().SetDeleteTarget("")
		o.Refresh()
		h.wait(c, o)

		if msg == "" {
			msg = "Record deleted"
		}
		return h.render(c, o, msg)
	}
}

func (h *Handler) record(c *fiber.Ctx, e audit.Entry) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(c.UserContext(), e); err != nil {
		h.log.Error("failed to record audit entry", zap.String("resource", e.Resource), zap.Error(err))
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

func UnmountHandler(h *Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := h.table(c)
		if o == nil {
			return err
		}

		o.Unmount()
		return response.NoContent(c)
	}
}

func DisposeSessionHandler(h *Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h.sessions.Dispose(auth.Subject(c))
		return response.NoContent(c)
	}
}
