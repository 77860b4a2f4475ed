package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/settings"
	"git.home.luguber.info/inful/bridgewatch/internal/signal"
)

const maxBodyBytes = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.Success(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.Success(w, http.StatusOK, s.svc.History())
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var sig signal.Signal
	if err := decodeBody(r, &sig, false); err != nil {
		s.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.HandleSignal(sig); err != nil {
		s.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.Success(w, http.StatusAccepted, map[string]string{"type": string(sig.Type)})
}

func (s *Server) handleDiscover(w http.ResponseWriter, _ *http.Request) {
	started := s.svc.Discover()
	s.Success(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.svc.CancelDiscovery()
	s.Success(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.TestConnection(r.Context(), req.Host, req.Port)
	if err != nil {
		s.Error(w, r, statusFor(err), err.Error())
		return
	}
	s.Success(w, http.StatusOK, res)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	// Fields missing from the body keep their current values.
	var patch settings.Patch
	if err := decodeBody(r, &patch, false); err != nil {
		s.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	saved, test, err := s.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.Error(w, r, statusFor(err), err.Error())
		return
	}
	s.Success(w, http.StatusOK, map[string]any{"settings": saved, "test": test})
}

func (s *Server) handleWipeLogs(w http.ResponseWriter, r *http.Request) {
	msg, err := s.svc.WipeLogs(r.Context())
	if err != nil {
		s.Error(w, r, statusFor(err), err.Error())
		return
	}
	s.Success(w, http.StatusOK, map[string]string{"message": msg})
}

// decodeBody decodes a JSON body into v. An empty body is accepted only when
// allowEmpty is set.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return bwerrors.New(bwerrors.CategoryValidation, bwerrors.SeverityError, "request body is required")
		}
		return bwerrors.Wrap(err, bwerrors.CategoryValidation, bwerrors.SeverityError, "invalid request body")
	}
	return nil
}
