package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/go-playground/validator/v10"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("filename", validFileName); err != nil {
		panic(err)
	}
	return v
}

var fileNameForbidden = regexp.MustCompile(`[/\\\x00-\x1f]`)

// validFileName accepts a single path element.
func validFileName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "." && s != ".." && !fileNameForbidden.MatchString(s)
}

type uploadQuery struct {
	Name   string `validate:"required,max=255,filename"`
	Parent string `validate:"max=128"`
	Size   int64  `validate:"gte=0"`
	Public bool
}

type reuploadQuery struct {
	Size int64 `validate:"gte=0"`
}

type duplicateBody struct {
	Name   string  `json:"name" validate:"omitempty,max=255,filename"`
	Parent *string `json:"parent" validate:"omitempty,min=1,max=128"`
}

type shareTokenBody struct {
	Permission      string `json:"permission" validate:"required,oneof=read write owner"`
	ExpirationInSec int    `json:"expirationInSec" validate:"gte=1"`
}

type redeemBody struct {
	Token string `json:"token" validate:"required"`
}

type bulkDeleteBody struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required,max=128"`
}

type bulkShareBody struct {
	IDs        []string `json:"ids" validate:"required,min=1,max=1000,dive,required,max=128"`
	Recipients []string `json:"recipients" validate:"required,min=1,max=100,dive,required,max=128"`
	Permission string   `json:"permission" validate:"required,oneof=read write owner"`
}

// maxSharePairs bounds the directory calls one bulk share can cause.
const maxSharePairs = 1000

func parseUploadQuery(q url.Values, maxSize int64) (uploadQuery, error) {
	var res uploadQuery
	res.Name = q.Get("name")
	res.Parent = q.Get("parent")

	size, err := parseSize(q, maxSize)
	if err != nil {
		return res, err
	}
	res.Size = size

	if v := q.Get("public"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return res, common.Validationf("public: %q is not a boolean", v)
		}
		res.Public = b
	}
	return res, validateStruct(res)
}

func parseReuploadQuery(q url.Values, maxSize int64) (reuploadQuery, error) {
	size, err := parseSize(q, maxSize)
	if err != nil {
		return reuploadQuery{}, err
	}
	res := reuploadQuery{Size: size}
	return res, validateStruct(res)
}

func parseSize(q url.Values, maxSize int64) (int64, error) {
	v := q.Get("size")
	if v == "" {
		return 0, common.Validationf("size is required")
	}
	size, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, common.Validationf("size: %q is not an integer", v)
	}
	if maxSize > 0 && size > maxSize {
		return 0, common.Validationf("size: %d exceeds the limit of %d bytes", size, maxSize)
	}
	return size, nil
}

// decodeJSON reads a bounded JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return common.Validationf("malformed JSON body: %v", err)
	}
	return validateStruct(v)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return common.Validationf("%v", err)
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
			}
		}
		return common.Validationf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
