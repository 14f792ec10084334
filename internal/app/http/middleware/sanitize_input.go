package middleware

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

const maxMultipartMemory = 32 << 20

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeString strips all HTML tags from s. bluemonday escapes the text it
// keeps, so the result is unescaped back to plain text.
func SanitizeString(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// SanitizeFields cleans the named string fields of JSON and multipart bodies
// using bluemonday. Other fields pass through untouched.
func SanitizeFields(fields ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		contentType := c.ContentType()
		switch {
		case contentType == gin.MIMEJSON:
			if !sanitizeJSON(c, fields) {
				return
			}
		case strings.HasPrefix(contentType, gin.MIMEMultipartPOSTForm):
			if !sanitizeMultipart(c, fields) {
				return
			}
		}

		c.Next()
	}
}

func sanitizeJSON(c *gin.Context, fields []string) bool {
	buf, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return false
	}

	var body map[string]interface{}
	if err := json.Unmarshal(buf, &body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
		return false
	}

	for _, k := range fields {
		if str, ok := body[k].(string); ok {
			body[k] = SanitizeString(str)
		}
	}

	newBody, err := json.Marshal(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
		return false
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
	c.Request.ContentLength = int64(len(newBody))
	return true
}

// sanitizeMultipart parses the form up front; later FormFile/PostForm calls
// reuse the parsed (and cleaned) values.
func sanitizeMultipart(c *gin.Context, fields []string) bool {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return false
	}

	for _, k := range fields {
		if vs, ok := c.Request.MultipartForm.Value[k]; ok {
			for i := range vs {
				vs[i] = SanitizeString(vs[i])
			}
		}
		if vs, ok := c.Request.PostForm[k]; ok {
			for i := range vs {
				vs[i] = SanitizeString(vs[i])
			}
		}
		if vs, ok := c.Request.Form[k]; ok {
			for i := range vs {
				vs[i] = SanitizeString(vs[i])
			}
		}
	}
	return true
}
