package quad

import "testing"

func TestInstructionString(t *testing.T) {
	tests := []struct {
		op   Instruction
		want string
	}{
		{FUNC_START, "BeginFunc"},
		{FUNC_END, "EndFunc"},
		{VARIABLE, "="},
		{CMP, "CMP"},
		{RETURN, "RET"},
		{LEAVE, "LEAVE"},
		{IF, "IF"},
		{PUSH, "PUSH"},
		{POP, "POP"},
		{CALL, "CALL"},
		{GOTO, "GOTO"},
		{EOL, ";"},
		{NOOP, ""},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Instruction(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestQuadrupleTextVariableWithAndWithoutOperator(t *testing.T) {
	binary := New(VARIABLE, "x", "y", "+")
	if got, want := binary.Text(), "x = y +"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	plain := New(VARIABLE, "x", "y", "")
	if got, want := plain.Text(), "x = y"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestQuadrupleTextControlFlowForms(t *testing.T) {
	tests := []struct {
		q    Quadruple
		want string
	}{
		{New(LABEL, "L1", "", ""), "L1:"},
		{New(GOTO, "L1", "", ""), "GOTO L1"},
		{New(IF, "x", "L1", ""), "IF x GOTO L1"},
		{New(PUSH, "x", "", ""), "PUSH x"},
		{New(POP, "", "", ""), "POP"},
		{New(CALL, "f", "", ""), "CALL f"},
		{New(RETURN, "x", "", ""), "RET x"},
		{New(LEAVE, "", "", ""), "LEAVE"},
		{New(CMP, "x", "0", ""), "CMP x 0"},
	}
	for _, tt := range tests {
		if got := tt.q.Text(); got != tt.want {
			t.Errorf("Text() for %+v = %q, want %q", tt.q, got, tt.want)
		}
	}
}

func TestStreamStringJoinsLinesWithNewlines(t *testing.T) {
	s := Stream{
		New(LABEL, "main", "", ""),
		New(RETURN, "", "", ""),
	}
	want := "main:\nRET \n"
	if got := s.String(); got != want {
		t.Errorf("Stream.String() = %q, want %q", got, want)
	}
}
