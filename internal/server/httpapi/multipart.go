package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/drivegate/internal/common"
)

// uploadField is the multipart field carrying file content.
const uploadField = "file"

// streamUpload hands the first "file" part of a multipart body to fn without
// buffering it. Parts before it and after it are read and discarded. A body
// without a file part is a validation error.
func streamUpload(r *http.Request, fn func(io.Reader) error) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return common.Validationf("expected a multipart body: %v", err)
	}

	handled := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if handled {
				// The file is already stored; a broken tail does not undo that.
				return nil
			}
			return common.Validationf("read multipart body: %v", err)
		}

		if !handled && part.FormName() == uploadField {
			handled = true
			if err := fn(part); err != nil {
				// fn may have left a reader blocked on part; the server
				// closes the body once the handler returns.
				return err
			}
			_ = part.Close()
			continue
		}

		_, _ = io.Copy(io.Discard, part)
		_ = part.Close()
	}

	if !handled {
		return common.Validationf("no file provided")
	}
	return nil
}
