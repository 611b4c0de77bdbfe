// Package query decodes URL query strings into tagged structs
package query

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/schema"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.SetAliasTag("query")
	return d
}

// Decode fills dst from the request's query parameters using `query` struct tags
func Decode(c *fiber.Ctx, dst interface{}) error {
	values := make(map[string][]string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		values[k] = append(values[k], string(value))
	})
	return decoder.Decode(dst, values)
}
