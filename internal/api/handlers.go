package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/trackfix-data/trackfix/internal/codec"
	"github.com/trackfix-data/trackfix/internal/httputil"
	"github.com/trackfix-data/trackfix/internal/monitoring"
	"github.com/trackfix-data/trackfix/internal/session"
	"github.com/trackfix-data/trackfix/internal/timeutil"
	"github.com/trackfix-data/trackfix/internal/track"
	"github.com/trackfix-data/trackfix/internal/units"
	"github.com/trackfix-data/trackfix/internal/version"
)

// maxUploadBytes bounds multipart memory buffering for track uploads.
const maxUploadBytes = 32 << 20

type trackResponse struct {
	SessionID string     `json:"session_id"`
	Track     track.Dict `json:"track"`
}

// decodeBody parses a JSON request body into dst. A false return means
// the error response has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// sessionFor looks up the session, writing a 404 when it is gone.
func (s *Server) sessionFor(w http.ResponseWriter, id string) *session.Session {
	if id == "" {
		httputil.BadRequest(w, "missing session_id")
		return nil
	}
	sess := s.registry.Get(id)
	if sess == nil {
		httputil.NotFound(w, fmt.Sprintf("session not found: %s", id))
		return nil
	}
	return sess
}

func writeTrack(w http.ResponseWriter, id string, sess *session.Session) {
	httputil.WriteJSONOK(w, trackResponse{SessionID: id, Track: sess.Dict()})
}

// readUpload pulls the uploaded file out of a multipart form and decodes
// it into a track.
func readUpload(w http.ResponseWriter, r *http.Request) (*track.Track, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid multipart form: %v", err))
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing 'file' form field")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read upload: %v", err))
		return nil, false
	}

	t, err := codec.Decode(header.Filename, data)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return t, true
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	t, ok := readUpload(w, r)
	if !ok {
		return
	}
	id, sess := s.registry.Create(t)
	writeTrack(w, id, sess)
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.handleHistory(w, r, (*session.Session).Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.handleHistory(w, r, (*session.Session).Redo)
}

// handleHistory serves undo and redo; stepping past either end of the
// history is a no-op success, not an error.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, step func(*session.Session) bool) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	step(sess)
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	sess.Reset()
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if s.registry.Delete(req.SessionID) == nil {
		httputil.NotFound(w, fmt.Sprintf("session not found: %s", req.SessionID))
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "closed"})
}

func (s *Server) handleNormalizePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		sessionRequest
		MaxSpeed  float64 `json:"max_speed"`
		MinPoints int     `json:"min_points"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	stucks := sess.DetectGpsStucks(req.MaxSpeed, req.MinPoints)
	httputil.WriteJSONOK(w, map[string][]session.GpsStuck{"stucks": stucks})
}

func (s *Server) handleNormalizeApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		sessionRequest
		Stucks []session.GpsStuck `json:"stucks"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	if err := sess.NormalizeGpsStucks(req.Stucks); err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleAddPoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		sessionRequest
		SegmentIdx   int     `json:"segment_idx"`
		PrevPointIdx int     `json:"prev_point_idx"`
		Lat          float64 `json:"lat"`
		Lon          float64 `json:"lon"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	if err := sess.InsertPoint(req.SegmentIdx, req.PrevPointIdx, req.Lat, req.Lon); err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleUpdateTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		sessionRequest
		SegmentIdx int    `json:"segment_idx"`
		PointIdx   int    `json:"point_idx"`
		NewTime    string `json:"new_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	newTime, err := timeutil.ParseISO8601(req.NewTime)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid new_time: %v", err))
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	if err := sess.UpdateTime(req.SegmentIdx, req.PointIdx, newTime); err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleRecalculateTimes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		sessionRequest
		StartPointID string  `json:"start_point_id"`
		EndPointID   string  `json:"end_point_id"`
		MaxDeviation float64 `json:"max_deviation"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	if err := sess.RecalculateTimes(req.StartPointID, req.EndPointID, req.MaxDeviation); err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleReroute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		sessionRequest
		SegmentIdx int     `json:"segment_idx"`
		PointIdx   int     `json:"point_idx"`
		NewLat     float64 `json:"new_lat"`
		NewLon     float64 `json:"new_lon"`
		Mode       string  `json:"mode"`
		RadiusM    float64 `json:"radius_m"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	if err := sess.Reroute(req.SegmentIdx, req.PointIdx, req.NewLat, req.NewLon, req.Mode, req.RadiusM); err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleTrim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		sessionRequest
		StartIdx int `json:"start_idx"`
		EndIdx   int `json:"end_idx"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := s.sessionFor(w, req.SessionID)
	if sess == nil {
		return
	}
	if err := sess.Trim(req.StartIdx, req.EndIdx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeTrack(w, req.SessionID, sess)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	t, ok := readUpload(w, r)
	if !ok {
		return
	}
	id := r.FormValue("session_id")
	sess := s.sessionFor(w, id)
	if sess == nil {
		return
	}
	sess.MergeWith(t)
	writeTrack(w, id, sess)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	sess := s.sessionFor(w, q.Get("session_id"))
	if sess == nil {
		return
	}

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = codec.FormatGPX
	}

	t := sess.Export()
	data, err := codec.Encode(t, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	name := q.Get("name")
	if name == "" {
		name = t.Metadata.Name
	}
	if name == "" {
		name = "track"
	}
	filename := fmt.Sprintf("%s.%s", name, format)

	w.Header().Set("Content-Type", codec.MediaType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		monitoring.Logf("failed to write export body: %v", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	sess := s.sessionFor(w, q.Get("session_id"))
	if sess == nil {
		return
	}

	target := q.Get("units")
	if target == "" {
		target = units.MPS
	}
	if !units.IsValid(target) {
		httputil.BadRequest(w, fmt.Sprintf("invalid units %q, expected one of: %s", target, units.GetValidUnitsString()))
		return
	}

	stats := sess.Stats()
	stats.AvgSpeed = units.ConvertSpeed(stats.AvgSpeed, target)
	stats.MaxSpeed = units.ConvertSpeed(stats.MaxSpeed, target)
	stats.SpeedUnits = target
	httputil.WriteJSONOK(w, stats)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
