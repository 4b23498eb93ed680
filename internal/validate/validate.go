package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"movienight/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// Setup 让 gin 的校验器使用 json 字段名报告错误
func Setup() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonName)
		}
	})
}

func jsonName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// BindJSON 绑定并校验请求体，失败时返回带字段信息的 apperr
func BindJSON(c *gin.Context, obj any) error {
	Setup()
	if err := c.ShouldBindJSON(obj); err != nil {
		return Wrap(err)
	}
	return nil
}

// BindQuery 绑定并校验查询参数
func BindQuery(c *gin.Context, obj any) error {
	Setup()
	if err := c.ShouldBindQuery(obj); err != nil {
		return Wrap(err)
	}
	return nil
}

// Wrap 把绑定错误转换为校验错误
func Wrap(err error) error {
	if fields := Fields(err); fields != nil {
		return apperr.Validation("validation failed", fields)
	}
	return apperr.Validation("invalid request body", map[string]string{"_error": "malformed JSON"})
}

// Fields 把 validator.ValidationErrors 转换为 field->message，非校验错误返回 nil
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	m := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		m[fieldName(fe)] = messageFor(fe)
	}
	return m
}

func fieldName(fe validator.FieldError) string {
	if fe.Field() != "" {
		return fe.Field()
	}
	return fe.StructField()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "alphanum":
		return "must contain only letters and digits"
	default:
		return fe.Error()
	}
}

// ParamID 解析路径参数中的正整数ID
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Field(name, "must be a positive integer")
	}
	return uint(id), nil
}
