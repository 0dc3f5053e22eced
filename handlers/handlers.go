// Package handlers holds the HTTP surface of the timecard service: the seven
// timecard operations plus the ownership and manager rules they enforce.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/byuoitav/timecard-service/auth"
	"github.com/byuoitav/timecard-service/database"
)

// TimecardStore is the slice of the store the handlers consume.
type TimecardStore interface {
	FindByOwner(ctx context.Context, ownerID string) ([]database.Timecard, error)
	FindByID(ctx context.Context, id string) (database.Timecard, error)
	FindAllWithOwner(ctx context.Context) ([]database.TimecardWithOwner, error)
	Insert(ctx context.Context, tc database.Timecard) (database.Timecard, error)
	Save(ctx context.Context, tc database.Timecard) error
	DeleteByID(ctx context.Context, id string) error
	ExistsInWindow(ctx context.Context, ownerID string, start, end time.Time) (bool, error)
}

// Handlers carries the dependencies of the timecard routes.
//
// PermissiveUpdates selects the legacy update merge: provided-but-falsy values
// (totalHours 0, empty entries) are ignored instead of stored. The default
// strict merge applies any field present in the payload, zero values included.
type Handlers struct {
	Store             TimecardStore
	PermissiveUpdates bool

	// Now is only overridden in tests.
	Now func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// canModify reports whether the principal may mutate the timecard: the owner
// always, anyone else only with the manager flag.
func canModify(p auth.Principal, tc database.Timecard) bool {
	return p.IsManager || tc.OwnerID == p.ID
}

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no token, authorization denied"})
	}
	return p, ok
}

func serverError(c *gin.Context, msg string, err error) {
	slog.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"msg": "server error", "error": err.Error()})
}

// ListOwn returns every timecard owned by the caller, most recent week first.
func (h *Handlers) ListOwn(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	timecards, err := h.Store.FindByOwner(c.Request.Context(), p.ID)
	if err != nil {
		serverError(c, "unable to list timecards", err)
		return
	}
	c.JSON(http.StatusOK, timecards)
}

type createRequest struct {
	WeekStartDate *time.Time           `json:"weekStartDate" binding:"required"`
	Entries       []database.TimeEntry `json:"entries" binding:"omitempty,dive"`
	TotalHours    *float64             `json:"totalHours" binding:"required"`
}

// Create inserts a new timecard owned by the caller. Nothing checks for an
// existing timecard in the same week here; CheckCurrentWeek is advisory only
// and duplicate weeks stay possible.
func (h *Handlers) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid timecard payload", "error": err.Error()})
		return
	}

	tc := database.Timecard{
		OwnerID:       p.ID,
		WeekStartDate: *req.WeekStartDate,
		Entries:       withEntryIDs(req.Entries),
		TotalHours:    *req.TotalHours,
		Completed:     false,
	}

	stored, err := h.Store.Insert(c.Request.Context(), tc)
	if err != nil {
		serverError(c, "unable to create timecard", err)
		return
	}
	slog.Info("timecard created", "id", stored.ID, "owner", p.ID)
	c.JSON(http.StatusOK, stored)
}

type updateRequest struct {
	Entries    *[]database.TimeEntry `json:"entries"`
	TotalHours *float64              `json:"totalHours"`
	Completed  *bool                 `json:"completed"`
}

// Update merges the provided fields into an existing timecard. The fetch,
// authorization check and save are not one atomic unit; concurrent updates to
// the same id can lose writes, which the store's single-row semantics make
// acceptable for one user editing their own week.
func (h *Handlers) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid timecard payload", "error": err.Error()})
		return
	}

	tc, ok := h.fetchForChange(c, p)
	if !ok {
		return
	}

	if h.PermissiveUpdates {
		if req.Entries != nil && len(*req.Entries) > 0 {
			tc.Entries = withEntryIDs(*req.Entries)
		}
		if req.TotalHours != nil && *req.TotalHours != 0 {
			tc.TotalHours = *req.TotalHours
		}
	} else {
		if req.Entries != nil {
			tc.Entries = withEntryIDs(*req.Entries)
		}
		if req.TotalHours != nil {
			tc.TotalHours = *req.TotalHours
		}
	}
	if req.Completed != nil {
		tc.Completed = *req.Completed
	}

	if err := h.Store.Save(c.Request.Context(), tc); err != nil {
		serverError(c, "unable to update timecard", err)
		return
	}
	c.JSON(http.StatusOK, tc)
}

// Complete marks a timecard completed. It sets the flag unconditionally, so a
// second call is a no-op that still succeeds.
func (h *Handlers) Complete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	tc, ok := h.fetchForChange(c, p)
	if !ok {
		return
	}

	tc.Completed = true
	if err := h.Store.Save(c.Request.Context(), tc); err != nil {
		serverError(c, "unable to complete timecard", err)
		return
	}
	c.JSON(http.StatusOK, tc)
}

// Delete removes a timecard permanently and returns a confirmation rather
// than the deleted record.
func (h *Handlers) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	tc, ok := h.fetchForChange(c, p)
	if !ok {
		return
	}

	if err := h.Store.DeleteByID(c.Request.Context(), tc.ID); err != nil {
		serverError(c, "unable to delete timecard", err)
		return
	}
	slog.Info("timecard removed", "id", tc.ID, "by", p.ID)
	c.JSON(http.StatusOK, gin.H{"msg": "timecard removed"})
}

// fetchForChange loads the timecard named in the route and runs the
// authorization check shared by Update, Complete and Delete. It writes the
// 404 or 401 response itself and reports ok=false.
func (h *Handlers) fetchForChange(c *gin.Context, p auth.Principal) (database.Timecard, bool) {
	id := c.Param("id")

	tc, err := h.Store.FindByID(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"msg": "timecard not found"})
		return tc, false
	}
	if err != nil {
		serverError(c, "unable to fetch timecard", err)
		return tc, false
	}

	if !canModify(p, tc) {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "user not authorized"})
		return tc, false
	}
	return tc, true
}

// OwnerGroup is one bucket of the manager listing.
type OwnerGroup struct {
	OwnerID   string              `json:"ownerId"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Timecards []database.Timecard `json:"timecards"`
}

// ListAllGrouped returns every timecard in the store bucketed per owner, for
// managers only. The store hands back one flat sorted list; a single pass
// folds it into groups in the order owners first appear.
func (h *Handlers) ListAllGrouped(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if !p.IsManager {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "not authorized"})
		return
	}

	rows, err := h.Store.FindAllWithOwner(c.Request.Context())
	if err != nil {
		serverError(c, "unable to list all timecards", err)
		return
	}

	groups := []*OwnerGroup{}
	byOwner := map[string]*OwnerGroup{}
	for _, row := range rows {
		group, ok := byOwner[row.OwnerID]
		if !ok {
			group = &OwnerGroup{
				OwnerID:   row.OwnerID,
				Name:      row.OwnerName,
				Email:     row.OwnerEmail,
				Timecards: []database.Timecard{},
			}
			byOwner[row.OwnerID] = group
			groups = append(groups, group)
		}
		group.Timecards = append(group.Timecards, row.Timecard)
	}
	c.JSON(http.StatusOK, groups)
}

// CheckCurrentWeek reports whether the caller already has a timecard for the
// running Monday-to-Sunday week. It is advisory: nothing stops a concurrent
// create between this check and a later POST.
func (h *Handlers) CheckCurrentWeek(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	start, end := database.CurrentWeek(h.now())
	exists, err := h.Store.ExistsInWindow(c.Request.Context(), p.ID, start, end)
	if err != nil {
		serverError(c, "unable to check current week", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// withEntryIDs assigns an id to every entry missing one. Ids are fresh per
// replacement of the entries array, not stable across updates.
func withEntryIDs(entries []database.TimeEntry) []database.TimeEntry {
	if entries == nil {
		return []database.TimeEntry{}
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
	}
	return entries
}
