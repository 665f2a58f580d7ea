package collection

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dORM/lib/orm"
	"github.com/spf13/cobra"
)

var (
	defineCmd = &cobra.Command{
		Use:   "define [collection] [definition-json]",
		Short: "Defines a collection schema",
		Long:  `Defines a collection schema. The definition is a JSON document, e.g. '{"attributes":[{"name":"id","type":"int","primaryKey":true,"autoIncrement":true},{"name":"email","type":"string","unique":true}]}'`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var def orm.CollectionDefinition
			if err := json.Unmarshal([]byte(args[1]), &def); err != nil {
				return fmt.Errorf("invalid definition json: %w", err)
			}
			if err := rpcEngine.Define(args[0], def); err != nil {
				return err
			}
			fmt.Println("defined successfully")
			return nil
		},
	}
	describeCmd = &cobra.Command{
		Use:   "describe [collection]",
		Short: "Prints the schema of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := rpcEngine.Describe(args[0])
			if err != nil {
				return err
			}
			return printJSON(def)
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [collection]",
		Short: "Drops a collection and all its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			relations, _ := cmd.Flags().GetStringSlice("relations")
			if err := rpcEngine.Drop(args[0], relations); err != nil {
				return err
			}
			fmt.Println("dropped successfully")
			return nil
		},
	}
	createCmd = &cobra.Command{
		Use:   "create [collection] [record-json]",
		Short: "Creates a record in a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var record orm.Record
			if err := json.Unmarshal([]byte(args[1]), &record); err != nil {
				return fmt.Errorf("invalid record json: %w", err)
			}
			created, err := rpcEngine.Create(args[0], record)
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [collection] [where-json]",
		Short: "Finds records matching the given criteria",
		Long:  `Finds records matching the given criteria. The where clause is a JSON document mapping attribute names to either a plain value (equality) or an operator object, e.g. '{"name":"alice"}' or '{"age":{"gte":18,"lt":65}}'. If omitted, all records are returned.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(cmd, args)
			if err != nil {
				return err
			}
			records, err := rpcEngine.Find(args[0], criteria)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [collection] [where-json] [values-json]",
		Short: "Updates all records matching the given criteria",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(cmd, args[:2])
			if err != nil {
				return err
			}
			var values orm.Record
			if err := json.Unmarshal([]byte(args[2]), &values); err != nil {
				return fmt.Errorf("invalid values json: %w", err)
			}
			records, err := rpcEngine.Update(args[0], criteria, values)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	destroyCmd = &cobra.Command{
		Use:   "destroy [collection] [where-json]",
		Short: "Destroys all records matching the given criteria",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(cmd, args)
			if err != nil {
				return err
			}
			records, err := rpcEngine.Destroy(args[0], criteria)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}

	ephSetCmd = &cobra.Command{
		Use:   "set [collection] [key] [value] [lifetime]",
		Short: "Sets an ephemeral entry with the given lifetime in seconds",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			lifetime, err := strconv.ParseUint(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("lifetime must be a number: %w", err)
			}
			if err := rpcEngine.SetEntry(args[0], args[1], []byte(args[2]), lifetime); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	ephGetCmd = &cobra.Command{
		Use:   "get [collection] [key]",
		Short: "Reads an ephemeral entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := rpcEngine.GetEntry(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", value)
			return nil
		},
	}
	ephTTLCmd = &cobra.Command{
		Use:   "ttl [collection] [key] [lifetime]",
		Short: "Updates the lifetime of an existing ephemeral entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lifetime, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("lifetime must be a number: %w", err)
			}
			if err := rpcEngine.UpdateEntryTTL(args[0], args[1], lifetime); err != nil {
				return err
			}
			fmt.Println("ttl updated successfully")
			return nil
		},
	}
	ephRmCmd = &cobra.Command{
		Use:   "rm [collection] [key]",
		Short: "Removes an ephemeral entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcEngine.RemoveEntry(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
)

// parseCriteria builds the criteria from the optional where-json argument and
// the limit/skip/sort flags. args[0] is the collection name, args[1] (if
// present) the where clause.
func parseCriteria(cmd *cobra.Command, args []string) (orm.Criteria, error) {
	var criteria orm.Criteria

	if len(args) > 1 && args[1] != "" {
		where, err := parseWhere(args[1])
		if err != nil {
			return criteria, err
		}
		criteria.Where = where
	}

	criteria.Limit, _ = cmd.Flags().GetInt("limit")
	criteria.Skip, _ = cmd.Flags().GetInt("skip")

	if sort, _ := cmd.Flags().GetString("sort"); sort != "" {
		for _, attr := range strings.Split(sort, ",") {
			attr = strings.TrimSpace(attr)
			if desc := strings.HasPrefix(attr, "-"); desc {
				criteria.Sort = append(criteria.Sort, orm.SortField{Attr: attr[1:], Desc: true})
			} else {
				criteria.Sort = append(criteria.Sort, orm.SortField{Attr: attr})
			}
		}
	}

	return criteria, nil
}

// parseWhere converts a JSON where clause into per-attribute conditions. A
// plain value means equality, an object maps operator names (eq, ne, lt, lte,
// gt, gte, in) to their operands.
func parseWhere(jsonStr string) (map[string][]orm.Condition, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("invalid where json: %w", err)
	}

	where := make(map[string][]orm.Condition, len(raw))
	for attr, value := range raw {
		ops, ok := value.(map[string]interface{})
		if !ok {
			where[attr] = []orm.Condition{orm.Eq(value)}
			continue
		}

		conds := make([]orm.Condition, 0, len(ops))
		for op, operand := range ops {
			switch op {
			case "eq":
				conds = append(conds, orm.Eq(operand))
			case "ne":
				conds = append(conds, orm.Ne(operand))
			case "lt":
				conds = append(conds, orm.Lt(operand))
			case "lte":
				conds = append(conds, orm.Lte(operand))
			case "gt":
				conds = append(conds, orm.Gt(operand))
			case "gte":
				conds = append(conds, orm.Gte(operand))
			case "in":
				vs, ok := operand.([]interface{})
				if !ok {
					return nil, fmt.Errorf("operand of 'in' for attribute %q must be an array", attr)
				}
				conds = append(conds, orm.In(vs...))
			default:
				return nil, fmt.Errorf("unknown operator %q for attribute %q", op, attr)
			}
		}
		where[attr] = conds
	}

	return where, nil
}

// printJSON pretty-prints any value as indented JSON
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// printRecords prints each record as a JSON line followed by a count
func printRecords(records []orm.Record) error {
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	fmt.Printf("%d record(s)\n", len(records))
	return nil
}
