package validator

import (
	"bytes"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Command returns the collMod command attaching the collection rule as the
// server side validator.
func (c *Collection) Command() bson.D {
	return bson.D{
		{Key: "collMod", Value: c.Name},
		{Key: "validator", Value: c.Rule.Filter()},
	}
}

// Script returns a mongo shell script with one db.runCommand per collection,
// in relaxed Extended JSON.
func Script() (string, error) {
	var buf bytes.Buffer
	sep := ""
	for _, c := range Collections() {
		b, err := bson.MarshalExtJSON(c.Command(), false, false)
		if err != nil {
			return "", fmt.Errorf("falha ao serializar validador da coleção [%s], erro %w", c.Name, err)
		}
		buf.WriteString(sep)
		buf.WriteString("// " + c.Name + "\n")
		buf.WriteString("db.runCommand(")
		buf.Write(b)
		buf.WriteString(")\n")
		sep = "\n"
	}
	return buf.String(), nil
}
