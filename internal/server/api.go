package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/MrWong99/livespell/internal/filecheck"
	"github.com/MrWong99/livespell/internal/observe"
	"github.com/MrWong99/livespell/internal/resilience"
	"github.com/MrWong99/livespell/pkg/types"
)

const (
	// multipartOverhead is added to the upload limit to leave room for the
	// multipart envelope.
	multipartOverhead = 64 << 10

	// multipartMemory is how much of a multipart body is held in memory
	// before spilling to temporary files.
	multipartMemory = 32 << 20
)

type checkTextRequest struct {
	Text string `json:"text"`
}

type checkTextResponse struct {
	Results []types.WordFinding `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCheckText(w http.ResponseWriter, r *http.Request) {
	var req checkTextRequest
	body := http.MaxBytesReader(w, r.Body, s.deps.MaxTextBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "text too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.deps.RequestTimeout)
	defer cancel()
	findings, err := s.deps.Analyzer.Analyze(ctx, req.Text)
	if err != nil {
		observe.Logger(ctx).Warn("one-shot analysis failed", "err", err)
		writeError(w, upstreamStatus(err), "Failed to check spelling. Please try again.")
		return
	}
	if findings == nil {
		findings = []types.WordFinding{}
	}
	writeJSON(w, http.StatusOK, checkTextResponse{Results: findings})
}

func (s *Server) handleCheckFile(w http.ResponseWriter, r *http.Request) {
	files := s.deps.Files
	if files == nil {
		writeError(w, http.StatusServiceUnavailable, "file checks are not configured")
		return
	}

	if limit := files.MaxBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit*int64(files.MaxBatch())+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	switch {
	case len(headers) == 0:
		writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
	case len(headers) == 1:
		s.checkFile(w, r, files, headers[0])
	case len(headers) > files.MaxBatch():
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: at most %d per request", filecheck.ErrTooManyFiles, files.MaxBatch()))
	default:
		s.checkFileBatch(w, r, files, headers)
	}
}

// checkFile answers a single-file upload with the bare result.
func (s *Server) checkFile(w http.ResponseWriter, r *http.Request, files *filecheck.Checker, hdr *multipart.FileHeader) {
	if err := files.Validate(hdr.Filename, hdr.Size); err != nil {
		writeError(w, validationStatus(err), err.Error())
		return
	}
	data, err := readUpload(hdr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	res, err := files.Check(r.Context(), hdr.Filename, data)
	if err != nil {
		status, msg := fileErrorStatus(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type fileBatchItem struct {
	Filename string            `json:"filename"`
	Status   int               `json:"status"`
	Result   *filecheck.Result `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type fileBatchResponse struct {
	Results []fileBatchItem `json:"results"`
}

// checkFileBatch answers a multi-file upload with one entry per file, in
// upload order. The response is 200 even when individual files fail.
func (s *Server) checkFileBatch(w http.ResponseWriter, r *http.Request, files *filecheck.Checker, headers []*multipart.FileHeader) {
	items := make([]fileBatchItem, len(headers))
	uploads := make([]filecheck.Upload, 0, len(headers))
	index := make([]int, 0, len(headers))
	for i, hdr := range headers {
		items[i].Filename = hdr.Filename
		data, err := readUpload(hdr)
		if err != nil {
			items[i].Status, items[i].Error = http.StatusBadRequest, "could not read upload"
			continue
		}
		uploads = append(uploads, filecheck.Upload{Filename: hdr.Filename, Data: data})
		index = append(index, i)
	}

	results, err := files.CheckAll(r.Context(), uploads)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for j, br := range results {
		item := &items[index[j]]
		if br.Err != nil {
			item.Status, item.Error = fileErrorStatus(br.Err)
			continue
		}
		item.Status, item.Result = http.StatusOK, br.Result
	}
	writeJSON(w, http.StatusOK, fileBatchResponse{Results: items})
}

func readUpload(hdr *multipart.FileHeader) ([]byte, error) {
	f, err := hdr.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// fileErrorStatus maps a file check error to a status and a client message.
func fileErrorStatus(err error) (int, string) {
	if status := validationStatus(err); status != http.StatusBadGateway {
		return status, err.Error()
	}
	return upstreamStatus(err), "Error processing file. Please try again."
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	files := s.deps.Files
	if files == nil {
		writeError(w, http.StatusServiceUnavailable, "file checks are not configured")
		return
	}
	locator := r.URL.Query().Get("locator")
	if strings.TrimSpace(locator) == "" {
		writeError(w, http.StatusBadRequest, `query parameter "locator" is required`)
		return
	}

	rc, err := files.Download(r.Context(), locator)
	if err != nil {
		observe.Logger(r.Context()).Warn("download failed", "locator", locator, "err", err)
		writeError(w, upstreamStatus(err), "Download failed. Please try again.")
		return
	}
	defer rc.Close()

	name := locator[strings.LastIndex(locator, "/")+1:]
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		observe.Logger(r.Context()).Warn("download copy interrupted", "err", err)
	}
}

func validationStatus(err error) int {
	switch {
	case errors.Is(err, filecheck.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, filecheck.ErrUnsupportedType), errors.Is(err, filecheck.ErrEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
