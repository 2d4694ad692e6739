// Package pr — вывод в терминал поверх readline. Пока консоль активна, stdout
// и stderr идут через буферы readline, чтобы логи не рвали строку ввода.
// До Init и в неинтерактивном режиме печать идёт прямо в os.Stdout/os.Stderr.
package pr

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kr/pretty"
)

// Options — параметры консоли.
type Options struct {
	Prompt string
	// HistoryFile — файл истории команд; пусто — без истории.
	HistoryFile string
}

var (
	mu     sync.Mutex
	rl     *readline.Instance
	stdin  io.Closer
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// Init поднимает readline с отменяемым stdin и переключает вывод на него.
func Init(opts Options) error {
	cs := readline.NewCancelableStdin(os.Stdin)
	inst, err := readline.NewEx(&readline.Config{
		Prompt:          opts.Prompt,
		HistoryFile:     opts.HistoryFile,
		Stdin:           cs,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		_ = cs.Close()
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	rl, stdin = inst, cs
	out, errOut = inst.Stdout(), inst.Stderr()
	return nil
}

// Active сообщает, инициализирована ли консоль.
func Active() bool {
	mu.Lock()
	defer mu.Unlock()
	return rl != nil
}

// OnKey ставит обработчик нажатий. Без Init ничего не делает.
func OnKey(fn func(line []rune, pos int, key rune) ([]rune, int, bool)) {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		rl.Config.SetListener(fn)
	}
}

// Readline читает строку. Без Init сразу возвращает io.EOF.
func Readline() (string, error) {
	mu.Lock()
	inst := rl
	mu.Unlock()
	if inst == nil {
		return "", io.EOF
	}
	return inst.Readline()
}

// Interrupt прерывает ожидающий Readline: тот вернёт io.EOF.
func Interrupt() {
	mu.Lock()
	defer mu.Unlock()
	if stdin != nil {
		_ = stdin.Close()
	}
}

// Close закрывает readline и возвращает вывод на стандартные потоки.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		_ = rl.Close()
	}
	rl, stdin = nil, nil
	out, errOut = os.Stdout, os.Stderr
}

// Stdout — текущий writer обычного вывода.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// Stderr — текущий writer диагностики.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

func Println(a ...any)               { fmt.Fprintln(Stdout(), a...) }
func Printf(format string, a ...any) { fmt.Fprintf(Stdout(), format, a...) }
func ErrPrintln(a ...any)            { fmt.Fprintln(Stderr(), a...) }

// Dump печатает значение через kr/pretty. Для команд отладки.
func Dump(v any) {
	fmt.Fprintf(Stdout(), "%# v\n", pretty.Formatter(v))
}
