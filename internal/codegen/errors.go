package codegen

import "fmt"

// UndefinedVariableError is returned when an expression or statement references a variable that
// was never declared as a global, a local, or a parameter in the enclosing procedure.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable: %s", e.Name)
}

func (e *UndefinedVariableError) Is(target error) bool {
	_, ok := target.(*UndefinedVariableError)
	return ok
}

// UndefinedProcedureError is returned when a call references a procedure or function that is
// neither declared in the program nor one of the runtime intrinsics.
type UndefinedProcedureError struct {
	Name string
}

func (e *UndefinedProcedureError) Error() string {
	return fmt.Sprintf("undefined procedure: %s", e.Name)
}

func (e *UndefinedProcedureError) Is(target error) bool {
	_, ok := target.(*UndefinedProcedureError)
	return ok
}

// TypeMismatchError is returned when an operand's static type is incompatible with its context,
// such as indexing a non-array variable.
type TypeMismatchError struct {
	Expected string
	Found    string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, found %s", e.Expected, e.Found)
}

func (e *TypeMismatchError) Is(target error) bool {
	_, ok := target.(*TypeMismatchError)
	return ok
}

// CodeGenError reports a failure specific to code generation that is not a symbol or type problem
// on its own, such as an EXIT statement outside any loop.
type CodeGenError struct {
	Msg string
}

func (e *CodeGenError) Error() string {
	return fmt.Sprintf("code generation error: %s", e.Msg)
}

func (e *CodeGenError) Is(target error) bool {
	_, ok := target.(*CodeGenError)
	return ok
}

// InternalError reports a violated invariant in the generator itself rather than a problem with
// the input program; seeing one means the generator has a bug.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Msg)
}

func (e *InternalError) Is(target error) bool {
	_, ok := target.(*InternalError)
	return ok
}
