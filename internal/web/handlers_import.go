package web

import (
	"errors"
	"net/http"
)

// multipartMemory is how much of an upload is buffered in memory before the
// multipart reader spills to a temp file.
const multipartMemory = 8 << 20

// handleImport replaces the stored data for the uploaded file.
// The file name identifies the data set; re-uploading a name replaces it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, err)
			return
		}
		s.respondError(w, r, errMissingFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errMissingFile)
		return
	}
	defer file.Close()

	if header.Size == 0 {
		s.respondError(w, r, errMissingFile)
		return
	}

	result, err := s.service.Import(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}
