package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UnendingLoop/ImageStore/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
)

func TestImageHandler_Ping(t *testing.T) {
	r := gin.New()
	h := NewImageHandler(nil, 0)

	r.GET("/ping", func(c *gin.Context) {
		h.SimplePinger((*ginext.Context)(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pong", body["message"])
}

type formFile struct {
	name    string
	content []byte
}

func newMultipartRequest(t *testing.T, fields map[string]string, files []formFile) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(FieldFiles, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serveUpload(h *ImageHandler, req *http.Request) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/api/v1/images", func(c *gin.Context) {
		h.Upload((*ginext.Context)(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImageHandler_Upload_OK(t *testing.T) {
	saved := &model.SavedImageData{ImageURLs: []string{"http://cdn.local/users/42/avatar/1.png"}}

	mock := &mockImageService{
		saveFn: func(ctx context.Context, files []model.UploadFile, path string, typ model.ImageType) (*model.SavedImageData, error) {
			require.Len(t, files, 1)
			require.Equal(t, "me.png", files[0].Name)
			require.Equal(t, int64(len("img-bytes")), files[0].Size)
			data, err := io.ReadAll(files[0].File)
			require.NoError(t, err)
			require.Equal(t, "img-bytes", string(data))

			require.Equal(t, "/users/42/avatar", path) // forwarded unmodified
			require.Equal(t, model.TypeProfile, typ)
			return saved, nil
		},
	}

	req := newMultipartRequest(t,
		map[string]string{FieldImagePath: "/users/42/avatar", FieldImageType: "PROFILE"},
		[]formFile{{"me.png", []byte("img-bytes")}},
	)
	w := serveUpload(NewImageHandler(mock, 0), req)

	require.Equal(t, 201, w.Code)
	require.Equal(t, 1, mock.saveCalls)

	var body model.ImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, saved, body.Data)
}

func TestImageHandler_Upload_ManyFilesKeepOrder(t *testing.T) {
	mock := &mockImageService{
		saveFn: func(ctx context.Context, files []model.UploadFile, path string, typ model.ImageType) (*model.SavedImageData, error) {
			require.Len(t, files, 3)
			require.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg"}, []string{files[0].Name, files[1].Name, files[2].Name})
			require.Equal(t, model.TypePost, typ)
			return &model.SavedImageData{ImageURLs: []string{"a", "b", "c"}}, nil
		},
	}

	req := newMultipartRequest(t,
		map[string]string{FieldImagePath: "posts/7", FieldImageType: "post"},
		[]formFile{{"1.jpg", []byte("1")}, {"2.jpg", []byte("2")}, {"3.jpg", []byte("3")}},
	)
	w := serveUpload(NewImageHandler(mock, 0), req)
	require.Equal(t, 201, w.Code)
}

func TestImageHandler_Upload_Rejected(t *testing.T) {
	oneFile := []formFile{{"a.png", []byte("img")}}

	tests := []struct {
		name       string
		fields     map[string]string
		files      []formFile
		wantStatus int
	}{
		{
			name:       "no files",
			fields:     map[string]string{FieldImagePath: "users/1", FieldImageType: "PROFILE"},
			wantStatus: 400,
		},
		{
			name:       "missing path",
			fields:     map[string]string{FieldImageType: "PROFILE"},
			files:      oneFile,
			wantStatus: 400,
		},
		{
			name:       "blank path",
			fields:     map[string]string{FieldImagePath: "   ", FieldImageType: "PROFILE"},
			files:      oneFile,
			wantStatus: 400,
		},
		{
			name:       "missing type",
			fields:     map[string]string{FieldImagePath: "users/1"},
			files:      oneFile,
			wantStatus: 400,
		},
		{
			name:       "unknown type",
			fields:     map[string]string{FieldImagePath: "users/1", FieldImageType: "AVATAR"},
			files:      oneFile,
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockImageService{}
			w := serveUpload(NewImageHandler(mock, 0), newMultipartRequest(t, tt.fields, tt.files))

			require.Equal(t, tt.wantStatus, w.Code)
			require.Equal(t, 0, mock.saveCalls)
		})
	}
}

func TestImageHandler_Upload_NotMultipart(t *testing.T) {
	mock := &mockImageService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", strings.NewReader(`{"imagePath":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	w := serveUpload(NewImageHandler(mock, 0), req)
	require.Equal(t, 400, w.Code)
	require.Equal(t, 0, mock.saveCalls)
}

func TestImageHandler_Upload_BodyLimit(t *testing.T) {
	mock := &mockImageService{}
	req := newMultipartRequest(t,
		map[string]string{FieldImagePath: "users/1", FieldImageType: "PROFILE"},
		[]formFile{{"big.png", bytes.Repeat([]byte("x"), 4096)}},
	)

	w := serveUpload(NewImageHandler(mock, 1024), req)
	require.Contains(t, []int{400, 413}, w.Code)
	require.Equal(t, 0, mock.saveCalls)
}

func TestImageHandler_Upload_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid path", model.ErrInvalidPath, 400},
		{"too many files", model.ErrTooManyFiles, 400},
		{"unsupported format", model.ErrUnsupportedFormat, 400},
		{"too large", model.ErrFileTooLarge, 413},
		{"storage failure", model.ErrCommon500, 500},
		{"unknown error", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockImageService{
				saveFn: func(ctx context.Context, files []model.UploadFile, path string, typ model.ImageType) (*model.SavedImageData, error) {
					return nil, tt.err
				},
			}
			req := newMultipartRequest(t,
				map[string]string{FieldImagePath: "users/1", FieldImageType: "PROFILE"},
				[]formFile{{"a.png", []byte("img")}},
			)

			w := serveUpload(NewImageHandler(mock, 0), req)
			require.Equal(t, tt.wantStatus, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestImageHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "success",
			body:       `{"imagePath":"/users/42/avatar"}`,
			wantStatus: 204,
			wantCalls:  1,
		},
		{
			name:       "not found",
			body:       `{"imagePath":"/users/42/avatar"}`,
			err:        model.ErrImageNotFound,
			wantStatus: 404,
			wantCalls:  1,
		},
		{
			name:       "service failure",
			body:       `{"imagePath":"/users/42/avatar"}`,
			err:        model.ErrCommon500,
			wantStatus: 500,
			wantCalls:  1,
		},
		{
			name:       "empty path",
			body:       `{"imagePath":""}`,
			wantStatus: 400,
		},
		{
			name:       "malformed body",
			body:       `{"imagePath":`,
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockImageService{
				deleteFn: func(ctx context.Context, path string) error {
					require.Equal(t, "/users/42/avatar", path)
					return tt.err
				},
			}

			r := gin.New()
			h := NewImageHandler(mock, 0)
			r.DELETE("/api/v1/images", func(c *gin.Context) {
				h.Delete((*ginext.Context)(c))
			})

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/images", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code)
			require.Equal(t, tt.wantCalls, mock.deleteCalls)
			if tt.wantStatus == 204 {
				require.Empty(t, w.Body.Bytes())
			}
		})
	}
}

func TestErrorCodeDefiner_Wrapped(t *testing.T) {
	_, err := model.ParseImageType("bad")
	require.Equal(t, 400, errorCodeDefiner(err))
}
