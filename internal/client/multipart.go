package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

// quoteEscaper escapes quoted Content-Disposition parameters the way
// mime/multipart does. Other bytes, including non-ASCII, are sent as is.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// formPart is one file part of a multipart body.
type formPart struct {
	field       string
	fileName    string
	contentType string
	content     io.Reader
}

// encodeMultipart writes parts into a multipart/form-data body and returns
// it with its content type.
func encodeMultipart(parts ...formPart) ([]byte, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	for _, part := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				quoteEscaper.Replace(part.field), quoteEscaper.Replace(part.fileName)))

		contentType := part.contentType
		if contentType == "" {
			contentType = constants.MediaTypeOctetStream
		}

		header.Set("Content-Type", contentType)

		partWriter, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file: %w", err)
		}

		if part.content != nil {
			_, err = io.Copy(partWriter, part.content)
			if err != nil {
				return nil, "", fmt.Errorf("writing file to form: %w", err)
			}
		}
	}

	err := writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
