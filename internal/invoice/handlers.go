package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/zombor/invoice-extractor/internal/pipeline"
)

const maxUploadSize = int64(50 << 20) // 50MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body with CORS headers set
func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	s.writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps a pipeline failure to an HTTP status
func statusFor(err error) int {
	switch pipeline.KindOf(err) {
	case pipeline.KindInput:
		if errors.Is(err, pipeline.ErrUnsupportedType) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case pipeline.KindConfiguration:
		return http.StatusServiceUnavailable
	case pipeline.KindRemoteProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload runs an uploaded document through extraction
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.logger.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	method := r.FormValue("method")
	if method == "" {
		s.writeError(w, http.StatusBadRequest, "No extraction method selected")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.logger.Error("Error reading file data", "error", err, "filename", header.Filename)
		s.writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	e, err := s.service.Extract(r.Context(), header.Filename, data, method)
	if err != nil {
		s.logger.Error("Error extracting invoice", "filename", header.Filename, "method", method, "error", err)
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, e)
}

// handleListExtractions returns all extractions
func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListExtractions()
	if err != nil {
		s.logger.Error("Error listing extractions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if list == nil {
		list = []*Extraction{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleGetExtraction returns a single extraction
func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, e)
}

// handleDeleteExtraction deletes an extraction
func (s *Server) handleDeleteExtraction(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExtraction(r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Extraction not found")
			return
		}
		s.logger.Error("Error deleting extraction", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error deleting extraction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetFile returns the uploaded document
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	data, e, err := s.service.GetExtractionFile(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}

	contentType := mime.TypeByExtension(e.Extension)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDownloadCSV exports an extraction as CSV
func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := NewTable(e.Result).WriteCSV(&buf); err != nil {
		s.logger.Error("Error writing CSV", "id", e.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error exporting extraction")
		return
	}

	attachment(w, "text/csv", "invoice_data.csv")
	w.Write(buf.Bytes())
}

// handleDownloadXLSX exports an extraction as an Excel workbook
func (s *Server) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	data, err := NewTable(e.Result).XLSX()
	if err != nil {
		s.logger.Error("Error writing XLSX", "id", e.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Error exporting extraction")
		return
	}

	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "invoice_data.xlsx")
	w.Write(data)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Extraction, bool) {
	e, err := s.service.GetExtraction(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Extraction not found")
		return nil, false
	}
	return e, true
}

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
