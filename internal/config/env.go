package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnv overlays environment variables onto c. Variable names are the
// upper-cased yaml path joined with '_', e.g. EMAIL_SMTP_PORT. Unset or empty
// variables leave the loaded value alone; malformed ones are reported.
func (c *Config) applyEnv() error {
	return overlayEnv(reflect.ValueOf(c).Elem(), "", os.LookupEnv)
}

func overlayEnv(v reflect.Value, prefix string, lookup func(string) (string, bool)) error {
	var errs []error
	t := v.Type()
	for i := range t.NumField() {
		field, meta := v.Field(i), t.Field(i)
		name, ok := yamlName(meta)
		if !ok || !field.CanSet() {
			continue
		}
		key := envName(prefix, name)

		if field.Kind() == reflect.Struct {
			if err := overlayEnv(field, key, lookup); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		raw, set := lookup(key)
		if !set || raw == "" {
			continue
		}
		if err := setField(field, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", key, raw, err))
		}
	}
	return errors.Join(errs...)
}

func setField(field reflect.Value, raw string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(raw)
	case field.CanInt():
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case field.CanFloat():
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}

// yamlName returns the key part of the yaml tag, ignoring options like omitempty
func yamlName(f reflect.StructField) (string, bool) {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" || name == "-" {
		return "", false
	}
	return name, true
}

func envName(prefix, name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}
