package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bidmart-backend/api/controllers/requestctx"
	"github.com/angelmondragon/bidmart-backend/api/responses"
	"github.com/angelmondragon/bidmart-backend/api/validators"
	"github.com/angelmondragon/bidmart-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
	"github.com/angelmondragon/bidmart-backend/pkg/pagination"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

var notificationLimit = validators.IntRange{Default: pagination.DefaultLimit, Min: 1, Max: pagination.MaxLimit}

type inboxFunc func(r *http.Request, actor types.Actor) (any, error)

func inbox(svc notifications.Service, logg *logger.Logger, fn inboxFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		actor, err := requestctx.Actor(r)
		if err == nil {
			var out any
			if out, err = fn(r, actor); err == nil {
				responses.WriteSuccess(w, out)
				return
			}
		}
		responses.WriteError(r.Context(), logg, w, err)
	}
}

// ListNotifications returns the caller's in-app notifications, newest first,
// paged by an opaque cursor.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inbox(svc, logg, func(r *http.Request, actor types.Actor) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", notificationLimit)
		if err != nil {
			return nil, err
		}
		unread, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			UserID:     actor.UserID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unread != nil && *unread,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inbox(svc, logg, func(r *http.Request, actor types.Actor) (any, error) {
		id, err := requestctx.UUIDParam(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), actor.UserID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inbox(svc, logg, func(r *http.Request, actor types.Actor) (any, error) {
		updated, err := svc.MarkAllRead(r.Context(), actor.UserID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}
