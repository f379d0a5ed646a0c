package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/chimera-core/internal/device"
)

// actionRequest is the body of POST /api/devices/{id}/actions. Fields are
// kept raw so a wrongly typed value fails after the device lookup instead
// of rejecting the whole body.
type actionRequest struct {
	Action   json.RawMessage `json:"action"`
	Category json.RawMessage `json:"category"`
}

// stringField returns raw as a string, or "" when it is absent or not a
// JSON string.
func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// handleListDevices returns the whole registry in stored order.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.service.List(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	dev, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handlePatchDevice merges a partial update into a device.
//
// Recognised fields are given_name, group.id, and blocklist. Anything else
// in the body is ignored.
func (s *Server) handlePatchDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	var patch device.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		if errors.Is(err, device.ErrInvalidPatch) {
			writeValidationError(w, msgInvalidPatch)
			return
		}
		writeBadRequest(w, msgInvalidJSON)
		return
	}

	dev, err := s.service.Patch(r.Context(), id, patch)
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	s.logMutation(r, id, device.ChangePatch)
	writeJSON(w, http.StatusOK, dev)
}

// handleDeviceAction applies isolate, release, or toggle_block to a device.
func (s *Server) handleDeviceAction(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, msgInvalidJSON)
		return
	}

	action := device.Action(stringField(req.Action))
	dev, err := s.service.ApplyAction(r.Context(), id, action, stringField(req.Category))
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	s.logMutation(r, id, string(action))
	writeJSON(w, http.StatusOK, dev)
}

// handleSummary returns aggregate counts over the registry.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summarize(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleListGroups returns the configured group table.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Groups())
}

// deviceID parses the {id} path parameter, writing a 400 when it is not
// an integer.
func deviceID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, msgInvalidID)
		return 0, false
	}
	return id, true
}

func (s *Server) logMutation(r *http.Request, id int, change string) {
	if sub := subjectFrom(r.Context()); sub != "" {
		s.logger.Debug("device mutated by token subject",
			"device_id", id,
			"change", change,
			"subject", sub,
			"request_id", requestIDFrom(r.Context()),
		)
	}
}
