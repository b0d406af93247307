package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Body is one of the accepted wire shapes: JSONBody or FormBody.
type Body interface {
	isBody()
}

// JSONBody is a decoded application/json submission. It never carries a file.
type JSONBody struct {
	Fields map[string]any
}

// FormBody is a form submission with an optional floor-plan file.
type FormBody struct {
	Values map[string][]string
	File   *Attachment
}

func (JSONBody) isBody() {}
func (FormBody) isBody() {}

// FormFileField is the multipart field carrying the floor-plan file.
const FormFileField = "file"

// DecodeJSON reads a single JSON object. Numbers are kept as json.Number so
// that coercion sees the submitted text.
func DecodeJSON(r io.Reader) (JSONBody, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return JSONBody{}, invalid("body", "malformed JSON")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return JSONBody{}, invalid("body", "malformed JSON")
	}
	if fields == nil {
		return JSONBody{}, invalid("body", "expected a JSON object")
	}
	return JSONBody{Fields: fields}, nil
}

// ReadBody picks the wire shape from the Content-Type header. maxBytes caps
// the in-memory size of a multipart submission including its file.
func ReadBody(r *http.Request, maxBytes int64) (Body, error) {
	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, invalid("content-type", "unparseable media type")
		}
		mediaType = mt
	}

	switch mediaType {
	case "multipart/form-data":
		return readMultipart(r, maxBytes)
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
		if err := r.ParseForm(); err != nil {
			return nil, invalid("body", "malformed form")
		}
		return FormBody{Values: map[string][]string(r.PostForm)}, nil
	case "application/json", "":
		return DecodeJSON(http.MaxBytesReader(nil, r.Body, maxBytes))
	default:
		return nil, invalid("content-type", fmt.Sprintf("unsupported media type %q", mediaType))
	}
}

func readMultipart(r *http.Request, maxBytes int64) (Body, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, invalid("body", "submission too large")
		}
		return nil, invalid("body", "malformed multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	body := FormBody{Values: map[string][]string(r.MultipartForm.Value)}

	headers := r.MultipartForm.File[FormFileField]
	if len(headers) == 0 || headers[0].Size == 0 {
		return body, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, invalid(FormFileField, "unreadable file")
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, invalid(FormFileField, "unreadable file")
	}
	body.File = &Attachment{
		Filename:    strings.TrimSpace(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
		Data:        buf.Bytes(),
	}
	return body, nil
}
