package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/models"
	"deal-wizard/internal/session"
	designpipeline "deal-wizard/internal/steps/design-pipeline"
	"deal-wizard/internal/steps/documents"
	geometrycapture "deal-wizard/internal/steps/geometry-capture"
	"deal-wizard/internal/wizard"
)

// ==========================
// Session lifecycle
// ==========================

func (s *Server) createSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess := s.manager.Create()
	writeJSON(w, http.StatusCreated, envelope{Session: sess.View()})
}

func (s *Server) viewSession(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return nil, nil
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.manager.Delete(ps.ByName("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// submit creates the deal. The session is discarded once the deal exists.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sess, err := s.manager.Get(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := sess.Submit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	view := sess.View()
	s.manager.Complete(sess.ID())
	writeJSON(w, http.StatusCreated, envelope{Result: result, Session: view})
}

// ==========================
// Navigation
// ==========================

type stepResponse struct {
	Step wizard.Step `json:"step"`
}

func (s *Server) next(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	step, err := sess.Next()
	if err != nil {
		return nil, err
	}
	s.entered(r, sess, step)
	return stepResponse{Step: step}, nil
}

func (s *Server) advance(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var req struct {
		Step wizard.Step `json:"step"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if err := sess.Advance(req.Step); err != nil {
		return nil, err
	}
	s.entered(r, sess, req.Step)
	return stepResponse{Step: req.Step}, nil
}

// entered runs the lookups a step needs on arrival.
func (s *Server) entered(r *http.Request, sess *session.Session, step wizard.Step) {
	if step == wizard.StepTradeArea {
		sess.EnterTradeArea(r.Context())
	}
}

func (s *Server) back(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	step, err := sess.Back()
	if err != nil {
		return nil, err
	}
	return stepResponse{Step: step}, nil
}

// ==========================
// Selections and forms
// ==========================

func (s *Server) setCategory(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var req struct {
		Category models.Category `json:"category"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, sess.SetCategory(req.Category)
}

func (s *Server) setDevelopmentType(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var req struct {
		DevelopmentType models.DevelopmentType `json:"developmentType"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, sess.SetDevelopmentType(req.DevelopmentType)
}

func (s *Server) loadPropertyTypes(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return sess.LoadPropertyTypes(r.Context())
}

func (s *Server) selectPropertyType(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var req struct {
		PropertyTypeID string `json:"propertyTypeId"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, sess.SelectPropertyType(req.PropertyTypeID)
}

func (s *Server) uploadDocuments(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	files, err := s.readFiles(r)
	if err != nil {
		return nil, err
	}
	return sess.UploadDocuments(r.Context(), files)
}

// readFiles loads every part of the "files" (or "file") form field.
func (s *Server) readFiles(r *http.Request) ([]documents.File, error) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return nil, apperrors.NewInvalidRequestError(err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, apperrors.NewInvalidRequestError(fmt.Errorf("no files in form"))
	}

	files := make([]documents.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.NewInvalidRequestError(err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apperrors.NewInvalidRequestError(err)
		}
		files = append(files, documents.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func (s *Server) removeDocument(r *http.Request, sess *session.Session, ps httprouter.Params) (interface{}, error) {
	return nil, sess.RemoveDocument(ps.ByName("docId"))
}

func (s *Server) setEconomics(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var e models.Economics
	if err := decode(r, &e); err != nil {
		return nil, err
	}
	return nil, sess.SetEconomics(e)
}

func (s *Server) setDetails(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, sess.SetDetails(req.Name, req.Description)
}

// ==========================
// Location and boundary
// ==========================

func (s *Server) resolveAddress(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	if req.Text == "" {
		return nil, apperrors.NewInvalidRequestError(fmt.Errorf("text is required"))
	}
	return sess.ResolveAddress(r.Context(), req.Text)
}

func (s *Server) setTradeArea(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var req struct {
		TradeAreaID string `json:"tradeAreaId"`
	}
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return nil, sess.SetTradeArea(req.TradeAreaID)
}

func (s *Server) lookupSubmarket(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return sess.LookupSubmarket(r.Context())
}

func (s *Server) drawingEvent(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var evt geometrycapture.DrawingEvent
	if err := decode(r, &evt); err != nil {
		return nil, err
	}
	return nil, sess.HandleDrawingEvent(evt)
}

func (s *Server) skipBoundary(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return sess.SkipBoundary()
}

// ==========================
// Design sub-pipeline
// ==========================

func (s *Server) updateDesign(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var m designpipeline.Metrics
	if err := decode(r, &m); err != nil {
		return nil, err
	}
	return sess.UpdateDesign(m)
}

func (s *Server) fetchNeighbors(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return sess.FetchNeighbors(r.Context())
}

func (s *Server) toggleNeighbor(r *http.Request, sess *session.Session, ps httprouter.Params) (interface{}, error) {
	selected, err := sess.ToggleNeighbor(ps.ByName("neighborId"))
	if err != nil {
		return nil, err
	}
	return map[string]bool{"selected": selected}, nil
}

func (s *Server) runOptimization(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return sess.RunOptimization(r.Context())
}

func (s *Server) acceptOptimization(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return sess.AcceptOptimization()
}

func (s *Server) rejectOptimization(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	return nil, sess.RejectOptimization()
}

func (s *Server) updateAssumptions(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	var a models.FinancialAssumptions
	if err := decode(r, &a); err != nil {
		return nil, err
	}
	return nil, sess.UpdateAssumptions(&a)
}

func (s *Server) dismissError(r *http.Request, sess *session.Session, _ httprouter.Params) (interface{}, error) {
	sess.DismissError()
	return nil, nil
}
