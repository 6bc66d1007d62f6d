package linker

import (
	"debug/elf"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// MachineType enumerates the architectures the target-oracle layer
// (pkg/linker/target.go) knows how to answer structural questions
// about. Grounded on AimiP02-tinyLinker's machinetype.go, widened from
// RISC-V-only to the machine types spec.md names explicitly (x86_64 as
// the primary fully-implemented oracle, RISC-V64 kept from the
// teacher, MIPS64/PPC64/AMDGPU as structural-only stubs per §4.4/§4.5).
type MachineType uint8

const (
	MachineTypeNone MachineType = iota
	MachineTypeX86_64
	MachineTypeRISCV64
	MachineTypeMIPS64
	MachineTypePPC64
	MachineTypeAMDGPU
)

func (m MachineType) String() string {
	switch m {
	case MachineTypeX86_64:
		return "x86_64"
	case MachineTypeRISCV64:
		return "riscv64"
	case MachineTypeMIPS64:
		return "mips64"
	case MachineTypePPC64:
		return "ppc64"
	case MachineTypeAMDGPU:
		return "amdgcn"
	default:
		return "none"
	}
}

func GetMachineTypeFromContents(contents []byte) MachineType {
	ft := GetFileType(contents)
	if ft != FileTypeObject && ft != FileTypeShared {
		return MachineTypeNone
	}
	if len(contents) < 20 {
		return MachineTypeNone
	}
	machine := elf.Machine(utils.Read[uint16](contents[18:]))
	class := elf.Class(contents[4])
	switch machine {
	case elf.EM_X86_64:
		if class == elf.ELFCLASS64 {
			return MachineTypeX86_64
		}
	case elf.EM_RISCV:
		if class == elf.ELFCLASS64 {
			return MachineTypeRISCV64
		}
	case elf.EM_MIPS:
		return MachineTypeMIPS64
	case elf.EM_PPC64:
		return MachineTypePPC64
	case elf.EM_AMDGPU:
		return MachineTypeAMDGPU
	}
	return MachineTypeNone
}

func (m MachineType) ElfMachine() uint16 {
	switch m {
	case MachineTypeX86_64:
		return uint16(elf.EM_X86_64)
	case MachineTypeRISCV64:
		return uint16(elf.EM_RISCV)
	case MachineTypeMIPS64:
		return uint16(elf.EM_MIPS)
	case MachineTypePPC64:
		return uint16(elf.EM_PPC64)
	case MachineTypeAMDGPU:
		return uint16(elf.EM_AMDGPU)
	default:
		return 0
	}
}
