package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nor2/wasi-harness/engine"
	"github.com/nor2/wasi-harness/runtime"
	"github.com/nor2/wasi-harness/task"
	"github.com/nor2/wasi-harness/wasi"
)

var logger = zap.NewNop()

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm module")
		envVars     = flag.String("env", "", "Guest environment variables (KEY=VAL,KEY2=VAL2)")
		envFile     = flag.String("envfile", "", "File with guest environment variables, godotenv format")
		entry       = flag.String("entry", "", "Entry point export to invoke (default _start)")
		workers     = flag.Int("workers", 0, "Worker pool size (0 = one per CPU)")
		cacheDir    = flag.String("cache", "", "Compilation cache directory")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-env K=V,...] [-envfile <path>] [-entry name]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: create logger: %v\n", err)
			os.Exit(1)
		}
		defer dev.Sync()
		logger = dev.Named("run")
		engine.SetLogger(dev.Named("engine"))
		runtime.SetLogger(dev.Named("runtime"))
		task.SetLogger(dev.Named("task"))
	}

	env, err := guestEnv(*envVars, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile, env, *entry, *workers, *cacheDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, env, *entry, *workers, *cacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// guestEnv merges -envfile and -env into the guest's environment; the
// inline flag wins on key collisions.
func guestEnv(envStr, envFile string) (wasi.EnvironmentConfig, error) {
	env := wasi.EnvironmentConfig{}

	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		for k, v := range fileVars {
			env[k] = v
		}
	}

	if envStr != "" {
		for _, kv := range strings.Split(envStr, ",") {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("malformed env entry %q", kv)
			}
			env[parts[0]] = parts[1]
		}
	}

	return env, nil
}

func run(wasmFile string, env wasi.EnvironmentConfig, entry string, workers int, cacheDir string) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	rt, err := runtime.NewWithConfig(ctx, &runtime.Config{
		Engine: &engine.Config{
			Features:  engine.AllFeatures(),
			CacheDir:  cacheDir,
			DebugInfo: true,
		},
		Workers: workers,
	})
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	mod, err := rt.Load(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	logger.Debug("module loaded",
		zap.String("file", wasmFile),
		zap.Int("size", mod.Size()),
		zap.Int("imports", len(mod.ImportedFunctions())))

	res, err := executeOnce(ctx, rt, mod, env, entry)
	if err != nil {
		return err
	}

	report(os.Stdout, res)
	return nil
}

// executeOnce performs one full execution cycle against a loaded module:
// fresh environment and host bindings, link, run, teardown.
func executeOnce(ctx context.Context, rt *runtime.Runtime, mod *engine.Module, env wasi.EnvironmentConfig, entry string) (*runtime.Result, error) {
	caps := wasi.AllowAll()

	table, err := hostImports(caps, rt.Tasks())
	if err != nil {
		return nil, fmt.Errorf("register host imports: %w", err)
	}

	builder, _, _, _ := wasi.Configure(caps, env)
	environment, err := builder.WithTasks(rt.Tasks()).Finalize(mod)
	if err != nil {
		return nil, fmt.Errorf("finalize environment: %w", err)
	}

	inst, err := rt.Link(ctx, environment, mod, table)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	defer inst.Cleanup(ctx, nil)

	if err := inst.SetRunning(); err != nil {
		return nil, err
	}

	var opts []runtime.DriverOption
	if entry != "" {
		opts = append(opts, runtime.WithEntryPoint(entry))
	}
	return runtime.NewDriver(rt.Tasks(), opts...).Run(ctx, inst)
}
