package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/real-xidaozu/llvm-project/pkg/linker"
	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

var version string

func main() {
	ctx := linker.NewContext()
	remaining := parseArgs(ctx)

	// If -m didn't pin an emulation, sniff the first recognizable input
	// file's machine type the way rvld always did; CheckFileCompatibility
	// (input.go) then holds every later file to that same machine.
	if ctx.Args.Emulation == linker.MachineTypeNone {
		for _, filename := range remaining {
			if strings.HasPrefix(filename, "-") {
				continue
			}

			file := linker.MustNewFile(filename)
			ctx.Args.Emulation = linker.GetMachineTypeFromContents(file.Contents)
			if ctx.Args.Emulation != linker.MachineTypeNone {
				ctx.Target = linker.NewTargetForMachine(ctx.Args.Emulation)
				break
			}
		}
	}

	linker.ReadInputFiles(ctx, remaining)

	linker.ResolveSymbols(ctx)
	linker.RegisterSectionPieces(ctx)
	linker.ComputeMergedSectionSizes(ctx)
	linker.CreateSyntheticSections(ctx)
	linker.BinSections(ctx)
	ctx.Chunks = append(ctx.Chunks, linker.CollectOutputSections(ctx)...)
	linker.ComputeSectionSizes(ctx)

	linker.DefineReservedSymbols(ctx)
	linker.ScanRelocations(ctx)
	linker.FinalizeSymbols(ctx)

	if ctx.HasError && !ctx.Args.NoInhibitExec {
		utils.Fatal("link failed: undefined symbols")
	}

	linker.SortOutputSections(ctx)

	for _, chunk := range ctx.Chunks {
		chunk.UpdateShdr(ctx)
	}

	fileSize := linker.SetOutputSectionOffsets(ctx)
	ctx.Buf = make([]byte, fileSize)

	for _, chunk := range ctx.Chunks {
		chunk.CopyBuf(ctx)
	}

	linker.WriteOutputFile(ctx)
}

func parseArgs(ctx *linker.Context) []string {
	args := os.Args[1:]

	dashes := func(name string) []string {
		if len(name) == 1 {
			return []string{"-" + name}
		}
		return []string{"-" + name, "--" + name}
	}

	arg := ""
	readArg := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				if len(args) == 1 {
					utils.Fatal(fmt.Sprintf("option -%s: argument missing", name))
				}

				arg = args[1]
				args = args[2:]
				return true
			}

			prefix := opt
			if len(name) > 1 {
				prefix += "="
			}
			if strings.HasPrefix(args[0], prefix) {
				arg = args[0][len(prefix):]
				args = args[1:]
				return true
			}
		}

		return false
	}

	readFlag := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				args = args[1:]
				return true
			}
		}

		return false
	}

	remaining := make([]string, 0)
	for len(args) > 0 {
		if readFlag("help") {
			fmt.Printf("usage: %s [options] file...\n", os.Args[0])
			os.Exit(0)
		}

		switch {
		case readArg("o") || readArg("output"):
			ctx.Args.Output = arg
		case readFlag("v") || readFlag("version"):
			fmt.Printf("ld %s\n", version)
			os.Exit(0)
		case readArg("m"):
			switch arg {
			case "elf64lriscv":
				ctx.Args.Emulation = linker.MachineTypeRISCV64
			case "elf_x86_64", "elf64_x86_64":
				ctx.Args.Emulation = linker.MachineTypeX86_64
			case "elf64ppc", "elf64lppc":
				ctx.Args.Emulation = linker.MachineTypePPC64
			case "elf64ltsmip", "elf64btsmip":
				ctx.Args.Emulation = linker.MachineTypeMIPS64
			default:
				utils.Fatal(fmt.Sprintf("unknown -m argument: %s", arg))
			}
			ctx.Target = linker.NewTargetForMachine(ctx.Args.Emulation)
		case readArg("L"):
			ctx.Args.LibraryPaths = append(ctx.Args.LibraryPaths, arg)
		case readArg("l"):
			remaining = append(remaining, "-l"+arg)
		case readFlag("shared") || readFlag("Bshareable"):
			ctx.Args.Shared = true
		case readFlag("static"):
			ctx.Args.Static = true
		case readFlag("r") || readFlag("relocatable"):
			ctx.Args.Relocatable = true
		case readArg("e") || readArg("entry"):
			ctx.Args.EntrySym = arg
		case readArg("soname") || readArg("h"):
			ctx.Args.SOName = arg
		case readArg("rpath") || readArg("R"):
			ctx.Args.RPath = arg
		case readArg("dynamic-linker") || readArg("I"):
			ctx.Args.DynamicLinker = arg
		case readFlag("export-dynamic") || readFlag("E"):
			ctx.Args.ExportDynamic = true
		case readFlag("s") || readFlag("strip-all"):
			ctx.Args.StripAll = true
		case readFlag("x") || readFlag("discard-all"):
			ctx.Args.DiscardAll = true
		case readFlag("X") || readFlag("discard-locals"):
			ctx.Args.DiscardLocals = true
		case readFlag("no-undefined"):
			ctx.Args.NoUndefined = true
		case readFlag("noinhibit-exec"):
			ctx.Args.NoInhibitExec = true
		case readArg("hash-style"):
			switch arg {
			case "gnu":
				ctx.Args.GnuHash, ctx.Args.SysvHash = true, false
			case "sysv":
				ctx.Args.GnuHash, ctx.Args.SysvHash = false, true
			case "both":
				ctx.Args.GnuHash, ctx.Args.SysvHash = true, true
			default:
				utils.Fatal(fmt.Sprintf("unknown --hash-style argument: %s", arg))
			}
		case readArg("z"):
			switch arg {
			case "now":
				ctx.Args.ZNow = true
			case "lazy":
				ctx.Args.ZNow = false
			case "relro":
				ctx.Args.ZRelro = true
			case "norelro":
				ctx.Args.ZRelro = false
			case "execstack":
				ctx.Args.ZExecStack = true
			case "noexecstack":
				ctx.Args.ZExecStack = false
			}
		case readArg("sysroot") ||
			readArg("plugin") ||
			readArg("plugin-opt") ||
			readFlag("as-needed") ||
			readFlag("start-group") ||
			readFlag("end-group") ||
			readFlag("no-relax") ||
			readArg("build-id"):
			// Ignored: accepted for command-line compatibility, no effect
			// on this core's output.
		default:
			if args[0][0] == '-' {
				utils.Fatal(fmt.Sprintf("unknown command line option: %s", args[0]))
			}
			remaining = append(remaining, args[0])
			args = args[1:]
		}
	}

	for i, path := range ctx.Args.LibraryPaths {
		ctx.Args.LibraryPaths[i] = filepath.Clean(path)
	}

	return remaining
}
