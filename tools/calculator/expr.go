package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrSyntax         = errors.New("表达式语法错误")
	ErrDivisionByZero = errors.New("除数为零")
	ErrOverflow       = errors.New("结果超出范围")
)

// number 区分整数与浮点，整数结果输出时不带小数
type number struct {
	v     float64
	float bool
}

func (n number) String() string {
	s := strconv.FormatFloat(n.v, 'f', -1, 64)
	if n.float && !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Eval 计算只含数字、+ - * / % **、括号的算术表达式
func Eval(expr string) (string, error) {
	p := &parser{src: expr}
	p.next()
	n, err := p.expr()
	if err != nil {
		return "", err
	}
	if p.tok.kind != tokEOF {
		return "", fmt.Errorf("%w: 多余的 %q", ErrSyntax, p.tok.text)
	}
	if math.IsInf(n.v, 0) || math.IsNaN(n.v) {
		return "", ErrOverflow
	}
	return n.String(), nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
}

type parser struct {
	src string
	pos int
	tok token
	err error
}

func (p *parser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF}
		return
	}

	ch := p.src[p.pos]
	switch {
	case ch >= '0' && ch <= '9' || ch == '.':
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.' || p.src[p.pos] == '_') {
			p.pos++
		}
		// 科学计数法，如 1e3、2.5E-2
		if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
			p.pos++
			if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
				p.pos++
			}
			for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
				p.pos++
			}
		}
		p.tok = token{kind: tokNum, text: p.src[start:p.pos]}
	case ch == '*' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
		p.pos += 2
		p.tok = token{kind: tokOp, text: "**"}
	case strings.IndexByte("+-*/%", ch) >= 0:
		p.pos++
		p.tok = token{kind: tokOp, text: string(ch)}
	case ch == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "("}
	case ch == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")"}
	default:
		p.tok = token{kind: tokOp, text: string(ch)}
		p.err = fmt.Errorf("%w: 非法字符 %q", ErrSyntax, ch)
		p.pos++
	}
}

// expr = term { ("+" | "-") term }
func (p *parser) expr() (number, error) {
	left, err := p.term()
	if err != nil {
		return number{}, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		p.next()
		right, err := p.term()
		if err != nil {
			return number{}, err
		}
		left = apply(op, left, right)
	}
	return left, nil
}

// term = unary { ("*" | "/" | "%") unary }
func (p *parser) term() (number, error) {
	left, err := p.unary()
	if err != nil {
		return number{}, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/" || p.tok.text == "%") {
		op := p.tok.text
		p.next()
		right, err := p.unary()
		if err != nil {
			return number{}, err
		}
		if (op == "/" || op == "%") && right.v == 0 {
			return number{}, ErrDivisionByZero
		}
		left = apply(op, left, right)
	}
	return left, nil
}

// unary = ("+" | "-") unary | power
func (p *parser) unary() (number, error) {
	if p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		neg := p.tok.text == "-"
		p.next()
		n, err := p.unary()
		if err != nil {
			return number{}, err
		}
		if neg {
			n.v = -n.v
		}
		return n, nil
	}
	return p.power()
}

// power = primary [ "**" unary ]，右结合
func (p *parser) power() (number, error) {
	base, err := p.primary()
	if err != nil {
		return number{}, err
	}
	if p.tok.kind == tokOp && p.tok.text == "**" {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return number{}, err
		}
		if base.v == 0 && exp.v < 0 {
			return number{}, ErrDivisionByZero
		}
		return apply("**", base, exp), nil
	}
	return base, nil
}

// primary = number | "(" expr ")"
func (p *parser) primary() (number, error) {
	if p.err != nil {
		return number{}, p.err
	}
	switch p.tok.kind {
	case tokNum:
		text := strings.ReplaceAll(p.tok.text, "_", "")
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return number{}, fmt.Errorf("%w: 非法数字 %q", ErrSyntax, p.tok.text)
		}
		n := number{v: v, float: strings.ContainsAny(text, ".eE")}
		p.next()
		return n, nil
	case tokLParen:
		p.next()
		n, err := p.expr()
		if err != nil {
			return number{}, err
		}
		if p.tok.kind != tokRParen {
			return number{}, fmt.Errorf("%w: 缺少右括号", ErrSyntax)
		}
		p.next()
		return n, nil
	case tokEOF:
		return number{}, fmt.Errorf("%w: 表达式不完整", ErrSyntax)
	default:
		return number{}, fmt.Errorf("%w: 意外的 %q", ErrSyntax, p.tok.text)
	}
}

func apply(op string, a, b number) number {
	isFloat := a.float || b.float
	switch op {
	case "+":
		return number{v: a.v + b.v, float: isFloat}
	case "-":
		return number{v: a.v - b.v, float: isFloat}
	case "*":
		return number{v: a.v * b.v, float: isFloat}
	case "/":
		return number{v: a.v / b.v, float: true}
	case "%":
		// 结果符号与除数一致
		m := math.Mod(a.v, b.v)
		if m != 0 && (m < 0) != (b.v < 0) {
			m += b.v
		}
		return number{v: m, float: isFloat}
	case "**":
		return number{v: math.Pow(a.v, b.v), float: isFloat || b.v < 0}
	}
	return number{}
}
