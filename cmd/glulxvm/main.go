// Command glulxvm runs, verifies, and disassembles Glulx story files.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zarf/glulxvm/internal/glk"
	"github.com/zarf/glulxvm/internal/ifio"
	"github.com/zarf/glulxvm/internal/vmlog"
	"github.com/zarf/glulxvm/vm"
)

var (
	saveDir    string
	undoLevels int
	seed       int64
	verbose    bool
	strict     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glulxvm",
		Short: "A Glulx bytecode interpreter",
		Long: `glulxvm loads a Glulx game file (optionally wrapped in a Blorb
container), verifies or runs it, and can disassemble it one instruction at
a time.`,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	runCmd := &cobra.Command{
		Use:   "run <game-file>",
		Short: "Run a Glulx game file to completion or quit",
		Args:  cobra.ExactArgs(1),
		RunE:  runGame,
	}
	runCmd.Flags().StringVar(&saveDir, "save-dir", ".", "directory for save/restore files")
	runCmd.Flags().IntVar(&undoLevels, "undo-levels", 8, "in-memory saveundo history depth (0 disables saveundo)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "seed the VM's random-number generator (0 picks an unpredictable seed)")
	runCmd.Flags().BoolVar(&strict, "strict", false, "abort at load time if the game file's checksum doesn't verify")
	rootCmd.AddCommand(runCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify <game-file>",
		Short: "Check a game file's header and checksum without running it",
		Args:  cobra.ExactArgs(1),
		RunE:  verifyGame,
	}
	rootCmd.AddCommand(verifyCmd)

	disasmCmd := &cobra.Command{
		Use:   "disasm <game-file>",
		Short: "Step the interpreter from the start function, printing one line per instruction",
		Args:  cobra.ExactArgs(1),
		RunE:  disasmGame,
	}
	disasmCmd.Flags().IntVar(&maxDisasmSteps, "max-steps", 200, "stop after this many instructions")
	rootCmd.AddCommand(disasmCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadImage reads path, unwraps a Blorb FORM container if present (taking
// the first "GLUL" chunk in the FORM; the resource index is not consulted),
// and returns the raw Glulx image bytes.
func loadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) >= 4 && string(data[0:4]) == "Glul" {
		return data, nil
	}
	form, err := ifio.ReadForm(data)
	if err != nil {
		return nil, fmt.Errorf("%s is neither a Glulx game file nor a Blorb archive", path)
	}
	if form.SubType != "IFRS" {
		return nil, fmt.Errorf("%s is a FORM of type %q, not a Blorb (IFRS) archive", path, form.SubType)
	}
	if exec := form.Find("GLUL"); exec != nil {
		return exec, nil
	}
	return nil, fmt.Errorf("%s is a Blorb archive with no GLUL executable chunk", path)
}

func newVM() *vm.VM {
	vmlog.Init(verbose)
	return vm.New(glk.NewTerminal(), vmlog.VMAdapter{Logger: vmlog.L})
}

func verifyGame(cmd *cobra.Command, args []string) error {
	image, err := loadImage(args[0])
	if err != nil {
		return err
	}
	v := newVM()
	if err := v.LoadImage(image); err != nil {
		return err
	}
	if !v.VerifyChecksum() {
		return fmt.Errorf("checksum mismatch: %s has been modified or truncated", args[0])
	}
	fmt.Printf("%s: OK\n", args[0])
	return nil
}

func runGame(cmd *cobra.Command, args []string) error {
	image, err := loadImage(args[0])
	if err != nil {
		return err
	}

	v := newVM()
	if err := v.LoadImage(image); err != nil {
		return err
	}
	if strict && !v.VerifyChecksum() {
		return fmt.Errorf("checksum mismatch: %s has been modified or truncated", args[0])
	}

	sessionID := uuid.NewString()
	vmlog.L.Info("starting run", vmlog.Session(sessionID), zap.String("game", args[0]))

	slot := filepath.Join(saveDir, filepath.Base(args[0])+".glksave")
	v.SetSaveHooks(
		func(data []byte) error {
			return os.WriteFile(slot, data, 0o644)
		},
		func() ([]byte, error) {
			return os.ReadFile(slot)
		},
	)

	if err := v.Restart(); err != nil {
		return err
	}
	v.SetUndoDepth(undoLevels)
	v.SeedRandom(uint32(seed))

	// Instruction dispatch never allocates on the fast path; letting the
	// collector run during a long interactive session only adds GC pauses
	// for no benefit, so it's disabled for the run and restored after.
	gcPercent := 100
	if s, ok := os.LookupEnv("GOGC"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			gcPercent = n
		}
	}
	debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	err = v.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return nil
}

var maxDisasmSteps int

func disasmGame(cmd *cobra.Command, args []string) error {
	image, err := loadImage(args[0])
	if err != nil {
		return err
	}
	v := newVM()
	if err := v.LoadImage(image); err != nil {
		return err
	}
	if err := v.Restart(); err != nil {
		return err
	}

	for i := 0; i < maxDisasmSteps; i++ {
		pc := v.PC()
		if err := v.Step(); err != nil {
			fmt.Printf("%06x  (stopped: %s)\n", pc, err)
			return nil
		}
		fmt.Printf("%06x -> %06x\n", pc, v.PC())
		if v.Err() != nil {
			break
		}
	}
	return nil
}
