/*
Package handler provides HTTP handler functions for read-only room status.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lounge/internal/pkg/errs"
	"lounge/internal/pkg/resp"
)

// HandleListRooms returns every room with its online count.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, map[string]any{
			"rooms": deps.Gateway.Rooms(),
		})
	}
}

// HandleGetRoom returns the roster and typing participants of one room.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, ok := deps.Gateway.Room(chi.URLParam(r, "room"))
		if !ok {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidRoom))
			return
		}

		resp.RespondSuccess(w, detail)
	}
}
