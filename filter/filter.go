package filter

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/ftl/iso8583-parser/iso8583"
	"github.com/ftl/iso8583-parser/msg"
)

// Program is a compiled CEL predicate over decoded messages, e.g.
//
//	mti == "0200" && 48 in fields && fields[4] > "000000010000"
//
// The following variables are available:
//
//	mti     string              the message type indicator
//	header  string              the hex text of the header bytes
//	ids     list(int)           the numbers of all present fields
//	fields  map(int, string)    the display value of each field
//	raw     map(int, string)    the raw hex text of each field
//
// and the functions mti_class(string) and ascii(string).
type Program struct {
	expression string
	program    cel.Program
}

var environment = sync.OnceValues(newEnvironment)

func newEnvironment() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("mti", cel.StringType),
		cel.Variable("header", cel.StringType),
		cel.Variable("ids", cel.ListType(cel.IntType)),
		cel.Variable("fields", cel.MapType(cel.IntType, cel.StringType)),
		cel.Variable("raw", cel.MapType(cel.IntType, cel.StringType)),
		cel.Function("mti_class",
			cel.Overload("mti_class_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					s, ok := val.(types.String)
					if !ok {
						return types.MaybeNoSuchOverloadErr(val)
					}
					return types.String(msg.MTIClass(string(s)))
				}),
			),
		),
		cel.Function("ascii",
			cel.Overload("ascii_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					s, ok := val.(types.String)
					if !ok {
						return types.MaybeNoSuchOverloadErr(val)
					}
					b, err := iso8583.HexToBinary(string(s))
					if err != nil {
						return types.NewErr("ascii: %v", err)
					}
					return types.String(string(b))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// Compile parses and checks the given expression. The expression must evaluate to a bool.
func Compile(expression string) (*Program, error) {
	env, err := environment()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression must evaluate to bool, but evaluates to %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter program: %w", err)
	}

	return &Program{
		expression: expression,
		program:    program,
	}, nil
}

// Match evaluates the predicate for the given message.
func (p *Program) Match(m *msg.Message) (bool, error) {
	val, _, err := p.program.Eval(Variables(m))
	if err != nil {
		return false, fmt.Errorf("filter evaluation error: %w", err)
	}
	result, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter expression returned %T instead of bool", val.Value())
	}
	return result, nil
}

func (p *Program) String() string {
	return p.expression
}

// Variables returns the values of all variables that a filter expression can refer to.
func Variables(m *msg.Message) map[string]any {
	ids := make([]int64, 0, len(m.Fields))
	fields := make(map[int64]string, len(m.Fields))
	raw := make(map[int64]string, len(m.Fields))
	for _, f := range m.Fields {
		id := int64(f.ID)
		ids = append(ids, id)
		fields[id] = f.Value
		raw[id] = f.Raw
	}
	return map[string]any{
		"mti":    m.MTI,
		"header": m.Header,
		"ids":    ids,
		"fields": fields,
		"raw":    raw,
	}
}
